package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/manualrag/internal/repository/chunk"
)

var errNoSelector = errors.New("at least one of --title or --manual-id is required")

var (
	purgeTitle    string
	purgeManualID string
)

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete the chunks of a manual",
	Long:  `Deletes every chunk whose title and/or manual id match. Both must match when both are given.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		sel := chunk.Selector{ManualID: purgeManualID, Title: purgeTitle}
		if sel.IsEmpty() {
			return errNoSelector
		}

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		n, err := a.chunks.Purge(cmd.Context(), tenantFor(a), sel)
		if err != nil {
			return fmt.Errorf("purge: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d chunks\n", n)
		return nil
	},
}

func init() {
	purgeCmd.Flags().StringVar(&purgeTitle, "title", "", "Manual title to delete")
	purgeCmd.Flags().StringVar(&purgeManualID, "manual-id", "", "Manual identifier to delete")
	rootCmd.AddCommand(purgeCmd)
}
