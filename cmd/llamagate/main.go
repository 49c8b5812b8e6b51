package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/llamagate-ai/llamagate/pkg/cache/sqlite"
	"github.com/llamagate-ai/llamagate/pkg/channel"
	"github.com/llamagate-ai/llamagate/pkg/channel/ollamaapi"
	"github.com/llamagate-ai/llamagate/pkg/channel/ollamacli"
	"github.com/llamagate-ai/llamagate/pkg/config"
	"github.com/llamagate-ai/llamagate/pkg/dispatch"
	"github.com/llamagate-ai/llamagate/pkg/tracker"
)

var version = "dev"

const defaultKeepAlive = 5 * time.Minute

func main() {
	var verbose bool

	root := &cobra.Command{
		Use:     "llamagate",
		Short:   "llamagate — cached execution gateway for a local Ollama runtime",
		Version: version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newGenerateCmd(),
		newChatCmd(),
		newModelsCmd(),
		newPSCmd(),
		newStopCmd(),
		newCacheCmd(),
		newStatsCmd(),
		newStatusCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app bundles the wired runtime shared by generation commands.
type app struct {
	cfg   *config.Config
	store *sqlite.Store
	tr    *tracker.SQLiteTracker
	disp  *dispatch.Dispatcher
}

// newApp loads config and wires both channels, the result store, and the
// usage tracker into a dispatcher.
func newApp(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	tr, err := tracker.New(cfg.DBPath)
	if err != nil {
		store.Close()
		return nil, err
	}

	chans := []channel.Channel{
		ollamaapi.New(cfg.BaseURL(), defaultKeepAlive),
		ollamacli.New(ollamacli.DefaultBinary),
	}

	disp, err := dispatch.New(cfg, store, tr, chans...)
	if err != nil {
		store.Close()
		tr.Close()
		return nil, err
	}

	return &app{cfg: cfg, store: store, tr: tr, disp: disp}, nil
}

func (a *app) Close() {
	_ = a.tr.Close()
	_ = a.store.Close()
}

// manager returns the model administration surface of the active channel.
func (a *app) manager() (channel.ModelManager, error) {
	return a.disp.ModelManager()
}
