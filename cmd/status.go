package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/yourschools/ingest-cli/internal/model"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show row counts across the store",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		counts, err := st.Counts(ctx)
		if err != nil {
			return eris.Wrap(err, "status")
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintf(tw, "Schools\t%d\n", counts.Schools)
		fmt.Fprintf(tw, "Licenses\t%d\n", counts.Licenses)
		fmt.Fprintf(tw, "Runs\t%d\n", counts.Runs)

		sources := make([]string, 0, len(counts.SourceRecords))
		for src := range counts.SourceRecords {
			sources = append(sources, string(src))
		}
		sort.Strings(sources)
		for _, src := range sources {
			fmt.Fprintf(tw, "Records: %s\t%d\n", src, counts.SourceRecords[model.Source(src)])
		}
		tw.Flush() //nolint:errcheck

		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
