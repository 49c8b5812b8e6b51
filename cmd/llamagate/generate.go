package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/llamagate-ai/llamagate/pkg/models"
)

func newGenerateCmd() *cobra.Command {
	var (
		configPath  string
		model       string
		channelName string
		stream      bool
		temperature float64
	)

	cmd := &cobra.Command{
		Use:   "generate [prompt]",
		Short: "Run a single generation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			if model == "" {
				model = a.cfg.DefaultModel
			}
			if channelName != "" {
				if err := a.disp.SwitchChannel(channelName); err != nil {
					return err
				}
			}

			req := &models.GenerationRequest{
				Model:  model,
				Prompt: args[0],
				Stream: stream,
			}
			if cmd.Flags().Changed("temperature") {
				req.Options = map[string]any{"temperature": temperature}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			if stream {
				return runStream(ctx, a, req)
			}

			res, err := a.disp.Generate(ctx, req)
			if err != nil {
				return err
			}
			fmt.Println(res.Response)
			if res.Cached {
				fmt.Fprintln(os.Stderr, "(served from cache)")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "llamagate.yaml", "path to config file")
	cmd.Flags().StringVarP(&model, "model", "m", "", "model to use (default from config)")
	cmd.Flags().StringVar(&channelName, "channel", "", "execution channel: api or cli")
	cmd.Flags().BoolVar(&stream, "stream", false, "stream the response as it is generated")
	cmd.Flags().Float64VarP(&temperature, "temperature", "t", 0.8, "sampling temperature")
	return cmd
}

func runStream(ctx context.Context, a *app, req *models.GenerationRequest) error {
	s, err := a.disp.GenerateStream(ctx, req)
	if err != nil {
		return err
	}

	for {
		chunk, err := s.Recv()
		if errors.Is(err, io.EOF) {
			fmt.Println()
			return nil
		}
		if errors.Is(err, context.Canceled) {
			_ = s.Cancel()
			fmt.Fprintln(os.Stderr, "\ncancelled")
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Print(chunk.Response)
	}
}
