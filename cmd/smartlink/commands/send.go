package commands

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"smartlink/internal/app"
	"smartlink/internal/domain"
)

// send <conversation> <message>: route a message through the relay.
func sendCmd(cfg app.Config) *cobra.Command {
	var recipient string
	cmd := &cobra.Command{
		Use:   "send <conversation> <message>",
		Short: "Send a message to a conversation through the relay",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := connect(cfg)
			if err != nil {
				return err
			}
			defer c.Disconnect()

			env := domain.NewEnvelope(domain.EnvelopeNewMessage, userID)
			env.ConversationID = args[0]
			env.RecipientID = recipient
			env.MessageID = uuid.NewString()
			env, err = env.WithData(struct {
				Content string `json:"content"`
			}{Content: args[1]})
			if err != nil {
				return err
			}

			if err := c.Send(env); err != nil {
				return err
			}
			fmt.Printf("sent %s\n", env.MessageID)
			return nil
		},
	}
	cmd.Flags().StringVar(&recipient, "recipient", "", "deliver to a single recipient instead of the whole conversation")
	return cmd
}
