package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/smazurov/rgbnode/internal/bus"
	"github.com/smazurov/rgbnode/internal/dispatch"
	"github.com/smazurov/rgbnode/internal/logging"
	"github.com/smazurov/rgbnode/internal/node"
	"github.com/spf13/cobra"
)

// DefaultBusURL is the broker used when none is configured.
const DefaultBusURL = "mqtt://127.0.0.1:1883"

type sendOptions struct {
	url      string
	username string
	password string
	timeout  time.Duration
}

// CreateSendCmd creates the send command, which publishes set and sequence
// commands the way a remote controller would.
func CreateSendCmd() *cobra.Command {
	opts := &sendOptions{}
	topics := bus.DefaultTopics()
	var setTopic, seqTopic string

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Publish a command to an rgbnode over the bus",
	}
	cmd.PersistentFlags().StringVar(&opts.url, "bus-url", DefaultBusURL, "Broker URL (mqtt://, tcp://, ssl://, ws://, nats://)")
	cmd.PersistentFlags().StringVar(&opts.username, "bus-username", "", "Broker username")
	cmd.PersistentFlags().StringVar(&opts.password, "bus-password", "", "Broker password")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 5*time.Second, "Connect and publish timeout")

	setCmd := &cobra.Command{
		Use:     "set <color>",
		Short:   "Show a named color immediately",
		Example: "  rgbnode send set purple",
		Args:    cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			if len(args[0]) > dispatch.MaxSetPayload {
				c.PrintErrf("warning: color is longer than %d bytes and will be truncated\n", dispatch.MaxSetPayload)
			}
			return send(opts, setTopic, args[0])
		},
	}
	setCmd.Flags().StringVar(&setTopic, "topic", topics.Set, "Set command topic")

	seqCmd := &cobra.Command{
		Use:     "seq <c1,c2,c3>",
		Short:   "Replace the playback sequence",
		Example: "  rgbnode send seq red,00ff00,#0000FF\n  rgbnode send seq orange cyan",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			payload := strings.Join(args, ",")
			if len(payload) > dispatch.MaxSequencePayload {
				c.PrintErrf("warning: sequence is longer than %d bytes and will be truncated\n", dispatch.MaxSequencePayload)
			}
			return send(opts, seqTopic, payload)
		},
	}
	seqCmd.Flags().StringVar(&seqTopic, "topic", topics.Sequence, "Sequence command topic")

	cmd.AddCommand(setCmd, seqCmd)
	return cmd
}

func send(opts *sendOptions, topic, payload string) error {
	logger := logging.GetLogger("bus")

	client, err := bus.New(bus.Options{
		URL:            opts.url,
		ClientID:       node.ClientID() + "-send",
		Username:       opts.username,
		Password:       opts.password,
		ConnectTimeout: opts.timeout,
		Logger:         logger,
	})
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.Connect(); err != nil {
		return fmt.Errorf("failed to connect to %s: %w", opts.url, err)
	}
	if !client.IsConnected() {
		return fmt.Errorf("broker %s is unreachable: %w", opts.url, bus.ErrNotConnected)
	}

	if err := client.Publish(topic, []byte(payload)); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	if f, ok := client.(interface{ Flush() error }); ok {
		if err := f.Flush(); err != nil {
			return fmt.Errorf("failed to flush: %w", err)
		}
	}

	logger.Info("Command sent", "topic", topic, "payload", payload)
	return nil
}
