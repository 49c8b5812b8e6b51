package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/llamagate-ai/llamagate/pkg/session"
)

func newChatCmd() *cobra.Command {
	var (
		configPath string
		model      string
		system     string
		loadPath   string
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive multi-turn conversation",
		Long: `Start an interactive conversation. Each exchange sends the system
message plus as much recent history as fits the context budget.

Commands inside the chat:
  /save <path>    save the conversation as JSON
  /export <path>  export as Markdown (.md) or plain text
  /history        print the retained turns
  /exit           end the session`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			if model == "" {
				model = a.cfg.DefaultModel
			}

			opts := []session.Option{
				session.WithMaxTurns(a.cfg.Session.MaxTurns),
				session.WithContextBudget(a.cfg.Session.ContextBudget),
			}
			if system != "" {
				opts = append(opts, session.WithSystemMessage(system))
			}

			var sess *session.Session
			if loadPath != "" {
				sess, err = session.Load(a.disp, loadPath, opts...)
				if err != nil {
					return err
				}
				fmt.Printf("Resumed %q (%d turns)\n", sess.Title(), len(sess.History()))
			} else {
				sess = session.New(a.disp, model, opts...)
			}
			defer sess.Close()

			fmt.Printf("Chatting with %s on the %s channel. /exit to quit.\n", sess.Model(), a.disp.Active())
			return chatLoop(cmd, a, sess)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "llamagate.yaml", "path to config file")
	cmd.Flags().StringVarP(&model, "model", "m", "", "model to use (default from config)")
	cmd.Flags().StringVarP(&system, "system", "s", "", "system message for the session")
	cmd.Flags().StringVar(&loadPath, "load", "", "resume a saved conversation")
	return cmd
}

func chatLoop(cmd *cobra.Command, a *app, sess *session.Session) error {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			done, err := chatCommand(sess, line)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
			}
			if done {
				return nil
			}
			continue
		}

		reply, err := sess.Exchange(cmd.Context(), line)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		}
		fmt.Println(reply)
	}
}

// chatCommand handles slash commands; returns true when the session ends.
func chatCommand(sess *session.Session, line string) (bool, error) {
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "/exit", "/quit":
		return true, nil
	case "/save":
		if arg == "" {
			return false, fmt.Errorf("usage: /save <path>")
		}
		if err := sess.Save(arg); err != nil {
			return false, err
		}
		fmt.Printf("Saved to %s\n", arg)
		return false, nil
	case "/export":
		if arg == "" {
			return false, fmt.Errorf("usage: /export <path>")
		}
		var err error
		if strings.HasSuffix(arg, ".md") {
			err = sess.ExportMarkdown(arg)
		} else {
			err = sess.ExportText(arg)
		}
		if err != nil {
			return false, err
		}
		fmt.Printf("Exported to %s\n", arg)
		return false, nil
	case "/history":
		for _, t := range sess.History() {
			fmt.Printf("[%d] %s: %s\n", t.Seq, t.Role, t.Content)
		}
		return false, nil
	default:
		return false, fmt.Errorf("unknown command %s", name)
	}
}
