package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/llamagate-ai/llamagate/pkg/models"
)

func newModelsCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "models",
		Short: "Manage installed models",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List installed models",
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
			list, err := mgr.ListModels(cmd.Context())
			if err != nil {
				return err
			}
			if len(list) == 0 {
				fmt.Println("No models installed.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tID\tSIZE\tMODIFIED")
			for _, m := range list {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", m.Name, m.ID, m.Size, m.Modified)
			}
			return w.Flush()
		},
	}

	showCmd := &cobra.Command{
		Use:   "show [model]",
		Short: "Show model details",
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
			info, err := mgr.ShowModel(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printModelInfo(info)
			return nil
		},
	}

	pullCmd := &cobra.Command{
		Use:   "pull [model]",
		Short: "Download a model",
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

			var lastStatus string
			err = mgr.PullModel(cmd.Context(), args[0], func(p models.PullProgress) {
				if p.Status != lastStatus {
					if lastStatus != "" {
						fmt.Println()
					}
					lastStatus = p.Status
				}
				fmt.Printf("\r%s %3.0f%%", p.Status, p.Percent)
			})
			fmt.Println()
			if err != nil {
				return err
			}
			fmt.Printf("Pulled %s\n", args[0])
			return nil
		},
	}

	loadCmd := &cobra.Command{
		Use:   "load [model]",
		Short: "Warm a model into runtime memory",
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
			if err := mgr.LoadModel(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("Loaded %s\n", args[0])
			return nil
		},
	}

	rmCmd := &cobra.Command{
		Use:   "rm [model]",
		Short: "Delete a model",
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
			if err := mgr.DeleteModel(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted %s\n", args[0])
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "llamagate.yaml", "path to config file")
	cmd.AddCommand(listCmd, showCmd, pullCmd, loadCmd, rmCmd)
	return cmd
}

func printModelInfo(info *models.ModelInfo) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Name:\t%s\n", info.Name)
	if info.Architecture != "" {
		fmt.Fprintf(w, "Architecture:\t%s\n", info.Architecture)
	}
	if info.Parameters != "" {
		fmt.Fprintf(w, "Parameters:\t%s\n", info.Parameters)
	}
	if info.Quantization != "" {
		fmt.Fprintf(w, "Quantization:\t%s\n", info.Quantization)
	}
	if info.Format != "" {
		fmt.Fprintf(w, "Format:\t%s\n", info.Format)
	}
	w.Flush()

	if info.System != "" {
		fmt.Printf("\nSystem:\n  %s\n", strings.TrimSpace(info.System))
	}
	if info.Template != "" {
		fmt.Printf("\nTemplate:\n%s\n", info.Template)
	}
}
