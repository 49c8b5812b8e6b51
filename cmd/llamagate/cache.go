package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/llamagate-ai/llamagate/pkg/cache/sqlite"
	"github.com/llamagate-ai/llamagate/pkg/config"
	"github.com/llamagate-ai/llamagate/pkg/format"
)

func newCacheCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the result cache",
	}

	openStore := func() (*sqlite.Store, error) {
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		return sqlite.New(cfg.DBPath)
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			stats, err := store.Stats()
			if err != nil {
				return err
			}
			fmt.Printf("Entries: %d\nHits:    %d\nMisses:  %d\nExpired: %d\nSize:    %s\n",
				stats.Entries, stats.Hits, stats.Misses, stats.Expired, format.Size(stats.TotalBytes))
			return nil
		},
	}

	var expiredOnly bool
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear cache entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			var removed int64
			if expiredOnly {
				removed, err = store.EvictExpired()
			} else {
				removed, err = store.Clear()
			}
			if err != nil {
				return err
			}
			fmt.Printf("Removed %d entries.\n", removed)
			return nil
		},
	}
	clearCmd.Flags().BoolVar(&expiredOnly, "expired", false, "only clear expired entries")

	var outPath string
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Export cache entry metadata as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			entries, err := store.Export()
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(entries, "", "  ")
			if err != nil {
				return err
			}
			if outPath == "" {
				fmt.Println(string(data))
				return nil
			}
			if err := os.WriteFile(outPath, data, 0o644); err != nil {
				return err
			}
			fmt.Printf("Exported %d entries to %s\n", len(entries), outPath)
			return nil
		},
	}
	exportCmd.Flags().StringVarP(&outPath, "output", "o", "", "write to file instead of stdout")

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "llamagate.yaml", "path to config file")
	cmd.AddCommand(statsCmd, clearCmd, exportCmd)
	return cmd
}
