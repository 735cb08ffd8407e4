package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jward/sindex"
)

var (
	flagIncludeLocal bool
	flagExcludes     []string
)

var addCmd = &cobra.Command{
	Use:   "add [flags] [--] <frontend args and files...>",
	Short: "Index C source files",
	Long:  "Runs the C frontend over the given files and merges the resulting\nrecords into the index. Everything after the first non-option token is\nforwarded to the frontend verbatim.",
	Args:  cobra.ArbitraryArgs,
	RunE:  runAdd,
}

func init() {
	addCmd.Flags().BoolVar(&flagIncludeLocal, "include-local-syms", false, "index function-local symbols too")
	addCmd.Flags().StringArrayVar(&flagExcludes, "exclude", nil, "skip input files matching this glob pattern (repeatable)")
	// The tail past the first non-option token belongs to the frontend.
	addCmd.Flags().SetInterspersed(false)
	rootCmd.AddCommand(addCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	var opts []sindex.Option
	if flagIncludeLocal {
		opts = append(opts, sindex.WithLocalSymbols())
	}
	if flagVerbose {
		opts = append(opts, sindex.WithVerbose())
	}
	if len(flagExcludes) > 0 {
		opts = append(opts, sindex.WithExcludes(flagExcludes...))
	}

	eng, err := sindex.New(databasePath(), true, opts...)
	if err != nil {
		return err
	}
	defer eng.Close()

	if err := eng.Add(context.Background(), args); err != nil {
		return fmt.Errorf("add: %w", err)
	}
	return nil
}
