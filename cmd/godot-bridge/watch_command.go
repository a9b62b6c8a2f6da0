package main

import (
	"context"
	"encoding/json"
	"time"

	"github.com/spf13/cobra"

	godotbridge "github.com/wagiedev/godot-bridge-go"
)

// watchedEvent is one line of "watch" output.
type watchedEvent struct {
	Time    time.Time       `json:"time"`
	Topic   string          `json:"topic"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var enable bool

	cmd := &cobra.Command{
		Use:   "watch [topic...]",
		Short: "Print editor events as JSON lines",
		Long:  "Print editor events as they arrive, one JSON object per line. Without topics every event is printed.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withConnection(cmd, func(runCtx context.Context, conn *godotbridge.Connection) error {
				log := ctx.logger(cmd)
				enc := json.NewEncoder(cmd.OutOrStdout())
				events := make(chan watchedEvent, 64)

				handler := func(_ context.Context, ev *godotbridge.Event) error {
					select {
					case events <- watchedEvent{Time: time.Now().UTC(), Topic: ev.Topic, Payload: ev.Payload}:
					default:
						log.Warn("Dropping event, output is falling behind", "topic", ev.Topic)
					}
					return nil
				}

				topics := args
				if len(topics) == 0 {
					topics = []string{godotbridge.TopicAll}
				}
				for _, topic := range topics {
					sub := conn.OnEvent(topic, handler)
					defer sub.Unsubscribe()
				}

				if err := conn.ConnectWithRetry(runCtx); err != nil {
					return err
				}

				if enable {
					if _, err := conn.SendCommand(runCtx, "debugger_enable_events", nil); err != nil {
						return err
					}
				}

				for {
					select {
					case <-runCtx.Done():
						return nil
					case ev := <-events:
						if err := enc.Encode(ev); err != nil {
							return err
						}
					}
				}
			})
		},
	}

	cmd.Flags().BoolVar(&enable, "enable-debugger-events", false, "Ask the editor to send debugger events to this client first")
	return cmd
}
