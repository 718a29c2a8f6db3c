package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"smartlink/internal/app"
	"smartlink/internal/client"
)

var (
	relayURL string
	userID   string
)

func Execute() error {
	cfg, err := app.Load()
	if err != nil {
		return err
	}

	root := &cobra.Command{
		Use:          "smartlink",
		Short:        "Relay chat client",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&relayURL, "relay", cfg.RelayURL, "relay websocket URL")
	root.PersistentFlags().StringVar(&userID, "user", "", "user identity to claim")

	root.AddCommand(watchCmd(cfg), sendCmd(cfg))
	return root.Execute()
}

// connect builds a client from the shared flags and opens the connection.
func connect(cfg app.Config) (*client.Client, error) {
	if userID == "" {
		return nil, fmt.Errorf("user identity required (--user)")
	}
	c := client.New(client.Config{
		URL:                  relayURL,
		UserID:               userID,
		HeartbeatInterval:    cfg.HeartbeatInterval,
		ReconnectDelay:       cfg.ReconnectDelay,
		MaxReconnectAttempts: cfg.MaxReconnectAttempts,
	}, app.NewLogger(cfg.LogLevel))
	if err := c.Connect(); err != nil {
		return nil, err
	}
	return c, nil
}
