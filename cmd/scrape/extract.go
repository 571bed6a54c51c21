package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/octobees/exhibitor-leads/internal/app"
	"github.com/octobees/exhibitor-leads/internal/pipeline"
)

func newExtractCmd(state *rootState) *cobra.Command {
	var file, baseURL, contentType string
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract exhibitors from a saved page and print them as JSON",
		Long: `Read one saved listing page, extract its exhibitor rows and print them as a
JSON array on stdout. Counts go to stderr.

Example:
  scrape extract --file page.html --base-url https://fair.example/exhibitors/
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				return fmt.Errorf("--file is required")
			}
			raw, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			components, err := app.Build(state.cfg, state.logger, nil, app.WithoutEnrichment())
			if err != nil {
				return err
			}

			exhibitors, rep := components.Pipeline.ExtractHTML(raw, contentType, baseURL)
			if rep.Error != "" {
				return fmt.Errorf("%s: %s", rep.Outcome, rep.Error)
			}
			if err := printJSON(cmd.OutOrStdout(), exhibitors); err != nil {
				return err
			}
			printDocumentCounts(cmd.ErrOrStderr(), rep)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "saved HTML or XHTML page")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "URL the page was fetched from, used to resolve links")
	cmd.Flags().StringVar(&contentType, "content-type", "text/html", "media type of the page")
	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printDocumentCounts(w io.Writer, r pipeline.DocumentReport) {
	fmt.Fprintf(w, "outcome:    %s\n", r.Outcome)
	fmt.Fprintf(w, "candidates: %d (truncated %d)\n", r.Candidates, r.Truncated)
	fmt.Fprintf(w, "rejections: %d\n", total(r.Rejections))
	fmt.Fprintf(w, "exhibitors: %d\n", r.Exhibitors)
}
