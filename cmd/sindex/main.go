// Command sindex maintains a persistent semantic index of C identifiers.
//
//	sindex [-D FILE] [-v] add [--include-local-syms] [--exclude PATTERN]... [--] <frontend args and files...>
//	sindex [-D FILE] [-v] rm <pattern>...
//	sindex [-D FILE] [-v] search [-f FMT] [-p PATHGLOB] [-m MODE] [-k KIND] [-e|-l] [PATTERN | FILE[:LINE[:COL]]]
//
// The index database defaults to sindex.sqlite in the working directory;
// SINDEX_DATABASE or -D override it.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	flagDB      string
	flagVerbose bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "sindex: %s\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "sindex",
	Short:         "Semantic index of identifiers in C source code",
	Long:          "sindex records every definition and use of C variables, functions,\nstruct/union tags and members in a SQLite database, and answers\nqueries by name, location, access mode or kind.",
	SilenceErrors: true,
	SilenceUsage:  true,
	// No Run — prints help by default.
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagDB, "database", "D", "", "index database path (default: $SINDEX_DATABASE or sindex.sqlite)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "report progress on stderr")
}

// databasePath resolves the store path: flag, then environment, then the
// default in the working directory.
func databasePath() string {
	if flagDB != "" {
		return flagDB
	}
	if env := os.Getenv("SINDEX_DATABASE"); env != "" {
		return env
	}
	return "sindex.sqlite"
}
