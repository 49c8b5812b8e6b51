package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/llamagate-ai/llamagate/pkg/config"
	"github.com/llamagate-ai/llamagate/pkg/tracker"
)

func newStatsCmd() *cobra.Command {
	var (
		configPath string
		since      time.Duration
		recent     bool
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show token usage statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			tr, err := tracker.New(cfg.DBPath)
			if err != nil {
				return err
			}
			defer tr.Close()

			ctx := cmd.Context()

			if recent {
				records, err := tr.Query(ctx, time.Now().UTC().Add(-since))
				if err != nil {
					return err
				}
				if len(records) == 0 {
					fmt.Println("No usage data found.")
					return nil
				}
				w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "TIME\tMODEL\tCHANNEL\tPROMPT\tCOMPLETION\tTOTAL\tCACHED")
				for _, r := range records {
					cached := ""
					if r.Cached {
						cached = "yes"
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
						r.CreatedAt.Format("2006-01-02T15:04:05"), r.Model, r.Channel,
						r.PromptTokens, r.CompletionTokens, r.TotalTokens, cached)
				}
				return w.Flush()
			}

			summaries, err := tr.Summary(ctx)
			if err != nil {
				return err
			}
			if len(summaries) == 0 {
				fmt.Println("No usage data found.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "MODEL\tREQUESTS\tCACHED\tPROMPT\tCOMPLETION\tTOTAL")
			for _, s := range summaries {
				fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%d\n",
					s.Model, s.RequestCount, s.CachedCount, s.TotalPrompt, s.TotalCompletion, s.TotalTokens)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "llamagate.yaml", "path to config file")
	cmd.Flags().BoolVar(&recent, "recent", false, "list individual records instead of the summary")
	cmd.Flags().DurationVar(&since, "since", 24*time.Hour, "window for --recent")
	return cmd
}
