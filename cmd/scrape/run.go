package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/octobees/exhibitor-leads/internal/app"
	"github.com/octobees/exhibitor-leads/internal/export"
	"github.com/octobees/exhibitor-leads/internal/fetch"
	"github.com/octobees/exhibitor-leads/internal/pipeline"
	"github.com/octobees/exhibitor-leads/internal/service"
)

type runFlags struct {
	sources     []string
	sourcesFile string
	render      bool
	discover    bool
	noEnrich    bool
	out         string
	format      string
}

func newRunCmd(state *rootState) *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fetch sources, extract exhibitors, enrich contacts and write both tables",
		Long: `Fetch every source, extract the exhibitor table, look up contacts for each
exhibitor and write exhibitors and contacts to --out.

Examples:
  scrape run --source https://www.messe-stuttgart.de/eltefa/aussteller/ --out ./out
  scrape run --source https://www.ihm.de/ --discover --format ndjson --out ./out
  scrape run --sources-file sources.csv --render --no-enrich --out ./out
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			sources, err := collectSources(f)
			if err != nil {
				return err
			}
			format, err := export.ParseFormat(f.format)
			if err != nil {
				return err
			}

			var opts []app.Option
			if f.noEnrich {
				opts = append(opts, app.WithoutEnrichment())
			}
			components, err := app.Build(state.cfg, state.logger, nil, opts...)
			if err != nil {
				return err
			}
			sources, err = service.NormalizeSources(sources, components.Strategies)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			state.logger.Info("run started", zap.Int("sources", len(sources)))
			res := components.Pipeline.Run(ctx, sources)
			if err := writeTables(f.out, format, res); err != nil {
				return err
			}
			printCounts(cmd.OutOrStdout(), res.Report)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&f.sources, "source", nil, "source URL (repeatable)")
	cmd.Flags().StringVar(&f.sourcesFile, "sources-file", "", "CSV or NDJSON file with sources")
	cmd.Flags().BoolVar(&f.render, "render", false, "fetch --source URLs through the render worker")
	cmd.Flags().BoolVar(&f.discover, "discover", false, "treat --source URLs as event landing pages")
	cmd.Flags().BoolVar(&f.noEnrich, "no-enrich", false, "skip contact enrichment")
	cmd.Flags().StringVar(&f.out, "out", ".", "output directory")
	cmd.Flags().StringVar(&f.format, "format", export.FormatCSV, "output format: csv, ndjson or json")
	return cmd
}

func collectSources(f runFlags) ([]pipeline.Source, error) {
	var sources []pipeline.Source
	for _, u := range f.sources {
		src := pipeline.Source{URL: u, Discover: f.discover}
		if f.render {
			src.Fetch = fetch.StrategyRender
		}
		sources = append(sources, src)
	}
	if f.sourcesFile != "" {
		fromFile, err := export.ReadSources(f.sourcesFile)
		if err != nil {
			return nil, fmt.Errorf("read sources: %w", err)
		}
		sources = append(sources, fromFile...)
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("at least one --source or --sources-file is required")
	}
	return sources, nil
}

func writeTables(dir, format string, res pipeline.Result) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := writeFile(filepath.Join(dir, "exhibitors"+export.FileExtension(format)), func(w io.Writer) error {
		return export.WriteExhibitors(w, format, res.Exhibitors)
	}); err != nil {
		return err
	}
	return writeFile(filepath.Join(dir, "contacts"+export.FileExtension(format)), func(w io.Writer) error {
		return export.WriteContacts(w, format, res.Contacts)
	})
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func printCounts(w io.Writer, r pipeline.Report) {
	fmt.Fprintf(w, "documents processed: %d\n", r.DocumentsProcessed)
	fmt.Fprintf(w, "documents failed:    %d\n", r.DocumentsFailed)
	fmt.Fprintf(w, "candidates:          %d (truncated %d)\n", r.Candidates, r.Truncated)
	fmt.Fprintf(w, "rejections:          %d\n", total(r.Rejections))
	fmt.Fprintf(w, "exhibitors:          %d\n", r.ExhibitorsFound)
	fmt.Fprintf(w, "contacts:            %d\n", r.ContactsFound)
	fmt.Fprintf(w, "channel failures:    %d\n", r.ChannelFailures)
}

func total(counts map[string]int) int {
	n := 0
	for _, c := range counts {
		n += c
	}
	return n
}
