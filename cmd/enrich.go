package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/yourschools/ingest-cli/internal/enrich"
)

var (
	enrichLimit  int
	enrichDryRun bool
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Find and verify websites for schools missing them",
	Long:  "Searches the web for schools without a confident website, scores candidate pages against the school's name, address, and phone, and stores the best match.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		limit := enrichLimit
		if limit == 0 {
			limit = cfg.Enrich.Limit
		}

		if err := cfg.Validate("enrich"); err != nil {
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

		client := newFetchClient()
		provider := enrich.NewDuckDuckGoProvider(client)
		engine := enrich.NewEngine(st, provider, client, cfg.Enrich.CacheTTL())

		result, err := engine.Run(ctx, enrich.Options{Limit: limit, DryRun: enrichDryRun})
		if err != nil {
			return err
		}

		formatEnrichResult(os.Stdout, result)
		return nil
	},
}

func formatEnrichResult(w io.Writer, result *enrich.Result) {
	fmt.Fprintf(w, "Processed %d: %d updated, %d skipped, %d no candidate, %d errors\n",
		result.Processed, result.Updated, result.Skipped, result.NoCandidate, result.Errors)

	if len(result.Records) == 0 {
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SCHOOL\tSTATUS\tWEBSITE\tCONFIDENCE")
	for _, rec := range result.Records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", rec.SchoolName, rec.Status, rec.Website, rec.Confidence)
	}
	tw.Flush() //nolint:errcheck
}

func init() {
	enrichCmd.Flags().IntVar(&enrichLimit, "limit", 0, "max schools to process (default from config)")
	enrichCmd.Flags().BoolVar(&enrichDryRun, "dry-run", false, "score candidates without writing to the store")
	rootCmd.AddCommand(enrichCmd)
}
