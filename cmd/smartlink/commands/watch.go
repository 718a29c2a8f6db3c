package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"smartlink/internal/app"
	"smartlink/internal/domain"
)

// watch: stay connected and print every inbound envelope until interrupted.
func watchCmd(cfg app.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Connect to the relay and print inbound envelopes",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := connect(cfg)
			if err != nil {
				return err
			}
			defer c.Disconnect()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			fmt.Printf("watching as %s (ctrl-c to stop)\n", userID)
			for {
				select {
				case <-ctx.Done():
					return nil
				case env := <-c.Events():
					printEnvelope(env)
				}
			}
		},
	}
}

func printEnvelope(env domain.Envelope) {
	switch env.Type {
	case domain.EnvelopeUserStatus:
		var p domain.PresencePayload
		_ = env.DecodeData(&p)
		fmt.Printf("[%s] %s is %s\n", env.Timestamp, env.SenderID, p.Status)
	case domain.EnvelopeTypingIndicator:
		fmt.Printf("[%s] %s is typing in %s\n", env.Timestamp, env.SenderID, env.ConversationID)
	default:
		raw, err := env.Encode()
		if err != nil {
			fmt.Printf("[%s] %s from %s\n", env.Timestamp, env.Type, env.SenderID)
			return
		}
		fmt.Println(string(raw))
	}
}
