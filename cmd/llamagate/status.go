package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/llamagate-ai/llamagate/pkg/channel/ollamaapi"
	"github.com/llamagate-ai/llamagate/pkg/channel/ollamacli"
	"github.com/llamagate-ai/llamagate/pkg/config"
	"github.com/llamagate-ai/llamagate/pkg/service"
)

func newStatusCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check runtime installation and reachability",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			api := ollamaapi.New(cfg.BaseURL(), defaultKeepAlive)
			st := service.New(api, ollamacli.DefaultBinary).Check(cmd.Context())

			if st.CLIInstalled {
				version := st.CLIVersion
				if version == "" {
					version = "unknown version"
				}
				fmt.Printf("CLI: installed (%s, %s)\n", version, st.CLIPath)
			} else {
				fmt.Println("CLI: not installed")
			}

			if st.APIReachable {
				fmt.Printf("API: reachable at %s (version %s)\n", cfg.BaseURL(), st.APIVersion)
			} else {
				fmt.Printf("API: unreachable at %s\n", cfg.BaseURL())
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "llamagate.yaml", "path to config file")
	return cmd
}
