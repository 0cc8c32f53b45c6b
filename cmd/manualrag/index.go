package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var indexPurge bool

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage the tenant search index",
}

var indexCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create the index if it does not exist",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		tenant := tenantFor(a)
		created, err := a.chunks.EnsureIndex(cmd.Context(), tenant)
		if err != nil {
			return fmt.Errorf("create index: %w", err)
		}
		if created {
			fmt.Fprintf(cmd.OutOrStdout(), "Created index for tenant %q\n", tenant)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "Index for tenant %q already exists\n", tenant)
		}
		return nil
	},
}

var indexDropCmd = &cobra.Command{
	Use:   "drop",
	Short: "Drop the index",
	Long:  `Drops the tenant index. With --purge the stored chunks are deleted as well.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		tenant := tenantFor(a)
		if err := a.chunks.DropIndex(cmd.Context(), tenant, indexPurge); err != nil {
			return fmt.Errorf("drop index: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Dropped index for tenant %q\n", tenant)
		return nil
	},
}

var indexStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the number of stored chunks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		tenant := tenantFor(a)
		n, err := a.chunks.Count(cmd.Context(), tenant)
		if err != nil {
			return fmt.Errorf("count chunks: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Tenant %q: %d chunks\n", tenant, n)
		return nil
	},
}

func init() {
	indexDropCmd.Flags().BoolVar(&indexPurge, "purge", false, "Also delete the stored chunks")
	indexCmd.AddCommand(indexCreateCmd, indexDropCmd, indexStatsCmd)
	rootCmd.AddCommand(indexCmd)
}
