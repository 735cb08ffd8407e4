package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jward/sindex"
)

var rmCmd = &cobra.Command{
	Use:   "rm <pattern>...",
	Short: "Remove files from the index",
	Long:  "Deletes every indexed file whose stored name matches one of the GLOB\npatterns, along with all of its index records.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRm,
}

func init() {
	rootCmd.AddCommand(rmCmd)
}

func runRm(cmd *cobra.Command, args []string) error {
	var opts []sindex.Option
	if flagVerbose {
		opts = append(opts, sindex.WithVerbose())
	}
	eng, err := sindex.New(databasePath(), true, opts...)
	if err != nil {
		return err
	}
	defer eng.Close()

	if _, err := eng.Remove(args); err != nil {
		return fmt.Errorf("rm: %w", err)
	}
	return nil
}
