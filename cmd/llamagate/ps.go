package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newPSCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "ps",
		Short: "List models loaded in runtime memory",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			mgr, err := a.manager()
			if err != nil {
				return err
			}
			running, err := mgr.ListRunning(cmd.Context())
			if err != nil {
				return err
			}
			if len(running) == 0 {
				fmt.Println("No models running.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tSIZE\tPROCESSOR\tUNTIL")
			for _, m := range running {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", m.Name, m.Size, m.Processor, m.Until)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "llamagate.yaml", "path to config file")
	return cmd
}

func newStopCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "stop [model]",
		Short: "Unload a model from runtime memory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			mgr, err := a.manager()
			if err != nil {
				return err
			}
			if err := mgr.UnloadModel(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("Stopped %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "llamagate.yaml", "path to config file")
	return cmd
}
