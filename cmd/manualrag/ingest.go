package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/kailas-cloud/manualrag/internal/domain"
	"github.com/kailas-cloud/manualrag/internal/usecase/ingest"
)

var (
	ingestManualID string
	ingestTitle    string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file>",
	Short: "Index the pages of a manual",
	Long: `Reads a manual and indexes its pages for the tenant.

The file is either pdftotext output, where a form feed ends each page,
or a JSON array of {"page": n, "text": "..."} objects.`,
	Example: `  pdftotext -layout pump.pdf pump.txt
  manualrag ingest pump.txt --title "Pump X200"`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestManualID, "manual-id", "", "Manual identifier (default: a new UUID)")
	ingestCmd.Flags().StringVar(&ingestTitle, "title", "", "Manual title shown in citations (default: file name)")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	path := args[0]
	pages, err := readPages(path)
	if err != nil {
		return err
	}

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	manual := domain.Manual{ID: ingestManualID, Title: ingestTitle}
	if manual.ID == "" {
		manual.ID = uuid.NewString()
	}
	if manual.Title == "" {
		manual.Title = titleFromPath(path)
	}

	rep, err := a.ingester.Ingest(cmd.Context(), ingest.Request{
		Tenant: tenantFor(a),
		Manual: manual,
		Pages:  pages,
	})
	if err != nil {
		return fmt.Errorf("ingest %s: %w", path, err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Indexed %q (%s)\n", rep.Title, rep.ManualID)
	fmt.Fprintf(out, "  pages:   %d (%d skipped)\n", rep.Pages, rep.SkippedPages)
	fmt.Fprintf(out, "  chunks:  %d in %d batches\n", rep.Chunks, rep.Batches)
	fmt.Fprintf(out, "  tokens:  %d\n", rep.Tokens)
	if rep.IndexCreated {
		fmt.Fprintln(out, "  index:   created")
	}
	return nil
}

func titleFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
