// Package main
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/elsanobooking/chatlink/chat"
	"github.com/elsanobooking/chatlink/rest"
)

type identity struct {
	id    int
	token string
}

func (i identity) UserID() int   { return i.id }
func (i identity) Token() string { return i.token }

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		server     string
		userID     int
		token      string
		hubPath    string
		verbose    bool
	)

	root := &cobra.Command{
		Use:           "chatctl",
		Short:         "Terminal client for the booking platform chat",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")
	root.PersistentFlags().StringVar(&server, "server", "", "platform origin, e.g. https://api.example.com")
	root.PersistentFlags().IntVar(&userID, "user", 0, "local user id")
	root.PersistentFlags().StringVar(&token, "token", "", "bearer token")
	root.PersistentFlags().StringVar(&hubPath, "hub-path", "", "realtime endpoint path override")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	resolve := func() (*config, error) {
		if verbose {
			log.SetLevel(log.DebugLevel)
		} else {
			log.SetLevel(log.WarnLevel)
		}
		cfg, err := loadConfig(configPath)
		if err != nil {
			return nil, err
		}
		if server != "" {
			cfg.Server = server
		}
		if userID != 0 {
			cfg.UserID = userID
		}
		if token != "" {
			cfg.Token = token
		}
		if hubPath != "" {
			cfg.HubPath = hubPath
		}
		return cfg, cfg.validate()
	}

	root.AddCommand(newChatCmd(resolve))
	root.AddCommand(newConversationsCmd(resolve))
	return root
}

func newConversationsCmd(resolve func() (*config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "conversations",
		Short: "List conversations with last-message previews",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolve()
			if err != nil {
				return err
			}
			client := rest.NewClient(cfg.Server, func() string { return cfg.Token })

			ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
			defer cancel()
			conversations, err := client.Conversations(ctx, cfg.UserID)
			if err != nil {
				return err
			}
			for _, c := range conversations {
				preview := ""
				if c.LastMessage != nil {
					preview = *c.LastMessage
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%4d  %-24s %s", c.ID, c.DisplayName(), preview)
				if c.UnreadCount > 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "  (%d unread)", c.UnreadCount)
				}
				fmt.Fprintln(cmd.OutOrStdout())
			}
			return nil
		},
	}
}

func newChatCmd(resolve func() (*config, error)) *cobra.Command {
	var peerID int

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Open an interactive chat with one peer",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolve()
			if err != nil {
				return err
			}
			if peerID <= 0 {
				return fmt.Errorf("--peer is required")
			}

			client := rest.NewClient(cfg.Server, func() string { return cfg.Token })
			options := []chat.Option{}
			if cfg.HubPath != "" {
				options = append(options, chat.WithHubPath(cfg.HubPath))
			}
			coordinator := chat.New(cfg.Server, identity{id: cfg.UserID, token: cfg.Token}, client, options...)
			defer coordinator.Close()

			coordinator.SelectConversation(peerID)
			go renderSnapshots(coordinator.Snapshots())

			sigs := make(chan os.Signal, 1)
			signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)

			lines := make(chan string)
			go func() {
				scanner := bufio.NewScanner(os.Stdin)
				for scanner.Scan() {
					lines <- scanner.Text()
				}
				close(lines)
			}()

			for {
				select {
				case <-sigs:
					return nil
				case line, ok := <-lines:
					if !ok {
						return nil
					}
					if line == "/reconnect" {
						coordinator.RequestReconnect()
						continue
					}
					if err := coordinator.Send(line, ""); err != nil {
						fmt.Fprintln(cmd.ErrOrStderr(), err)
					}
				}
			}
		},
	}
	cmd.Flags().IntVar(&peerID, "peer", 0, "peer user id")
	return cmd
}

// renderSnapshots prints new messages and connection status changes
// as snapshots arrive.
func renderSnapshots(snapshots <-chan chat.Snapshot) {
	var lastState chat.State = -1
	printed := 0
	for snap := range snapshots {
		if snap.State != lastState {
			lastState = snap.State
			fmt.Printf("-- %s --\n", snap.State)
			if snap.State != chat.Active && snap.State != chat.Connecting {
				fmt.Println("-- not connected, type /reconnect to retry --")
			}
		}
		if snap.LastError != "" {
			fmt.Printf("!! %s\n", snap.LastError)
		}
		if len(snap.Messages) < printed {
			printed = 0 // conversation switched
		}
		for _, m := range snap.Messages[printed:] {
			marker := " "
			if m.FromSelf && !m.Confirmed {
				marker = "?"
			}
			fmt.Printf("[%s] %s%s %s\n", m.Timestamp, m.Sender, marker, m.Text)
		}
		printed = len(snap.Messages)
	}
}
