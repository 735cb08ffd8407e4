package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jward/sindex"
	"github.com/jward/sindex/internal/usage"
)

// defaultFormat is the template used when -f is not given.
const defaultFormat = `(%m) %f\t%l\t%c\t%C\t%s`

var (
	flagFormat  string
	flagPath    string
	flagMode    string
	flagKind    string
	flagExplain bool
	flagUsage   bool
)

var searchCmd = &cobra.Command{
	Use:   "search [flags] [PATTERN | FILE[:LINE[:COL]]]",
	Short: "Query the index",
	Long: "Searches the index by symbol name or, with -e or -l, by source\n" +
		"location. A PATTERN containing any of * ? [ ] matches as a GLOB;\n" +
		"otherwise it matches literally.",
	Args: cobra.MaximumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVarP(&flagFormat, "format", "f", defaultFormat, "output template (%f %l %c %C %n %m %k %s)")
	searchCmd.Flags().StringVarP(&flagPath, "path", "p", "", "only records from files matching this GLOB")
	searchCmd.Flags().StringVarP(&flagMode, "mode", "m", "", "only records with this access mode (def, r, w, m, -, or three of [rwm-])")
	searchCmd.Flags().StringVarP(&flagKind, "kind", "k", "", "only records of this kind (s, f, v, m)")
	searchCmd.Flags().BoolVarP(&flagExplain, "explain", "e", false, "argument is a location; show the records at it")
	searchCmd.Flags().BoolVarP(&flagUsage, "usage", "l", false, "argument is a location; show every use of the symbols at it")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	opts, err := searchOptions(args)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	formatter, err := sindex.NewFormatter(flagFormat)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}
	defer formatter.Close()

	eng, err := sindex.New(databasePath(), false)
	if err != nil {
		return err
	}
	defer eng.Close()

	recs, err := eng.Search(opts)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	out := bufio.NewWriter(os.Stdout)
	for i := range recs {
		if err := formatter.Format(out, &recs[i]); err != nil {
			return fmt.Errorf("search: %w", err)
		}
	}
	return out.Flush()
}

// searchOptions validates the flag combination and builds the structured
// query.
func searchOptions(args []string) (sindex.SearchOptions, error) {
	var opts sindex.SearchOptions

	if flagExplain && flagUsage {
		return opts, fmt.Errorf("-e and -l are mutually exclusive")
	}
	if flagPath != "" {
		opts.Path = flagPath
	}
	if flagKind != "" {
		if len(flagKind) != 1 {
			return opts, fmt.Errorf("invalid kind %q: want a single character", flagKind)
		}
		opts.Kind = flagKind[0]
	}
	if flagMode != "" {
		mask, exact, err := usage.Parse(flagMode)
		if err != nil {
			return opts, err
		}
		opts.Mode = mask
		opts.ModeExact = exact
		opts.ModeSet = true
	}

	if flagExplain || flagUsage {
		if len(args) != 1 {
			return opts, fmt.Errorf("-e and -l need a location argument")
		}
		loc, err := sindex.ParseLocation(args[0])
		if err != nil {
			return opts, err
		}
		if flagExplain {
			opts.Explain = &loc
		} else {
			opts.Usage = &loc
		}
		return opts, nil
	}

	if len(args) == 1 {
		opts.Symbol = args[0]
	}
	return opts, nil
}
