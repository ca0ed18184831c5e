package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/yourschools/ingest-cli/internal/ingest"
	"github.com/yourschools/ingest-cli/internal/model"
	"github.com/yourschools/ingest-cli/internal/pipeline"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [source...]",
	Short: "Run ingestion for one or more sources",
	Long:  "Fetches records from the named sources (all of them when none are given), resolves each into a canonical school row, and records a run per source.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("ingest"); err != nil {
			return err
		}

		sources, err := parseSources(args)
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		registry := ingest.NewRegistry(cfg.Sources, newFetchClient())
		engine := pipeline.NewEngine(st)

		results, err := pipeline.RunSources(ctx, st, engine, registry, sources)
		if err != nil {
			return err
		}

		formatResults(os.Stdout, results)

		if !model.Succeeded(results) {
			return eris.New("one or more sources failed")
		}
		return nil
	},
}

func parseSources(args []string) ([]model.Source, error) {
	if len(args) == 0 {
		return model.AllSources(), nil
	}

	sources := make([]model.Source, 0, len(args))
	for _, arg := range args {
		src, ok := model.ParseSource(strings.ToUpper(arg))
		if !ok {
			return nil, eris.Errorf("unknown source: %s", arg)
		}
		sources = append(sources, src)
	}
	return sources, nil
}

func formatResults(w io.Writer, results []model.IngestionResult) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SOURCE\tSTATUS\tSEEN\tUPSERTED\tSKIPPED\tRUN")
	for _, r := range results {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\n",
			r.Source, r.Status, r.RecordsSeen, r.RecordsUpserted, r.RecordsSkipped, r.RunID)
	}
	tw.Flush() //nolint:errcheck
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}
