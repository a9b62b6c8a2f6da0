package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	godotbridge "github.com/wagiedev/godot-bridge-go"
)

// statusReport is the output of "status".
type statusReport struct {
	URL       string    `json:"url"`
	Reachable bool      `json:"reachable"`
	State     string    `json:"state"`
	LinkID    string    `json:"link_id,omitempty"`
	Latency   string    `json:"latency,omitempty"`
	Pong      any       `json:"pong,omitempty"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check whether the editor is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var report statusReport

			err := ctx.withConnection(cmd, func(runCtx context.Context, conn *godotbridge.Connection) error {
				report = probe(runCtx, conn)
				return nil
			})
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(report); err != nil {
					return err
				}
			} else {
				printStatus(cmd, report)
			}

			if !report.Reachable {
				return fmt.Errorf("editor not reachable at %s", report.URL)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")
	return cmd
}

// probe connects once and round-trips a ping.
func probe(ctx context.Context, conn *godotbridge.Connection) (report statusReport) {
	report.CheckedAt = time.Now().UTC()

	defer func() {
		st := conn.Status()
		report.URL = st.URL
		report.State = st.State.String()
		report.LinkID = st.LinkID
	}()

	if err := conn.Connect(ctx); err != nil {
		report.Error = err.Error()
		return report
	}

	start := time.Now()

	res, err := conn.SendCommand(ctx, "ping", nil)
	if err != nil {
		report.Error = err.Error()
		return report
	}

	report.Reachable = true
	report.Latency = time.Since(start).Round(time.Microsecond).String()

	if payload, err := res.Map(); err == nil && len(payload) > 0 {
		report.Pong = payload
	}
	return report
}

func printStatus(cmd *cobra.Command, r statusReport) {
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Editor:    %s\n", r.URL)
	fmt.Fprintf(out, "Reachable: %s\n", yesNo(r.Reachable))
	fmt.Fprintf(out, "State:     %s\n", r.State)
	if r.LinkID != "" {
		fmt.Fprintf(out, "Link:      %s\n", r.LinkID)
	}
	if r.Latency != "" {
		fmt.Fprintf(out, "Latency:   %s\n", r.Latency)
	}
	if r.Error != "" {
		fmt.Fprintf(out, "Error:     %s\n", r.Error)
	}
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
