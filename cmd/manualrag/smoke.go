package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/manualrag/internal/domain"
	"github.com/kailas-cloud/manualrag/internal/repository/chunk"
	"github.com/kailas-cloud/manualrag/internal/usecase/ingest"
	"github.com/kailas-cloud/manualrag/internal/usecase/retrieve"
)

const (
	smokeManualID = "smoke"
	smokeTitle    = "Smoke Test"
	smokeText     = "Hej världen"
)

var smokeCleanup bool

var smokeCmd = &cobra.Command{
	Use:   "smoke",
	Short: "Check the embed, store and search round trip",
	Long: `Indexes a one-line "Smoke Test" manual, then searches for a similar word
and for the exact text. The exact query should score higher.

Running it again replaces the previous smoke manual. --cleanup deletes it afterwards.`,
	Args: cobra.NoArgs,
	RunE: runSmoke,
}

func init() {
	smokeCmd.Flags().BoolVar(&smokeCleanup, "cleanup", false, "Delete the smoke manual when done")
	rootCmd.AddCommand(smokeCmd)
}

func runSmoke(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	ctx := cmd.Context()
	tenant := tenantFor(a)
	out := cmd.OutOrStdout()
	sel := chunk.Selector{ManualID: smokeManualID}

	if _, err := a.chunks.EnsureIndex(ctx, tenant); err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	if _, err := a.chunks.Purge(ctx, tenant, sel); err != nil {
		return fmt.Errorf("remove previous smoke manual: %w", err)
	}

	if _, err := a.ingester.Ingest(ctx, ingest.Request{
		Tenant: tenant,
		Manual: domain.Manual{ID: smokeManualID, Title: smokeTitle},
		Pages:  []domain.PageText{{Page: 1, Text: smokeText}},
	}); err != nil {
		return fmt.Errorf("ingest smoke manual: %w", err)
	}

	fmt.Fprintf(out, "Tenant: %s\n", tenant)
	for _, q := range []string{"Hej", smokeText} {
		cands, err := a.retriever.Retrieve(ctx, retrieve.Query{
			Tenant:      tenant,
			Question:    q,
			TopK:        3,
			ManualID:    smokeManualID,
			MaxPerTitle: -1,
		})
		if err != nil {
			return fmt.Errorf("search %q: %w", q, err)
		}
		fmt.Fprintf(out, "\nMatches for %q:\n", q)
		if len(cands) == 0 {
			fmt.Fprintln(out, "  (none)")
		}
		for _, c := range cands {
			fmt.Fprintf(out, "  %.4f  %s, page %s: %s\n", c.EffectiveScore(), c.Title, c.Page, c.Text)
		}
	}

	if smokeCleanup {
		n, err := a.chunks.Purge(ctx, tenant, sel)
		if err != nil {
			return fmt.Errorf("cleanup: %w", err)
		}
		fmt.Fprintf(out, "\nDeleted %d smoke chunks\n", n)
	}
	return nil
}
