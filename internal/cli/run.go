package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/liamcoop/arules/internal/board"
	"github.com/liamcoop/arules/rules"
)

// RunResult is the JSON output of the run command
type RunResult struct {
	Rules      int      `json:"rules"`
	Events     int      `json:"events"`
	Log        []string `json:"log"`
	Alerts     []string `json:"alerts"`
	Background string   `json:"background,omitempty"`
}

// NewRunCommand creates the run command
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	var logMode string

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Dispatch a scenario's events and print the outcome log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := parseLogMode(logMode)
			if err != nil {
				return err
			}
			return runScenario(cmd.OutOrStdout(), rootOpts.Format, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&logMode, "log", "all", "outcomes to log (all|success|failure|none)")

	return cmd
}

func parseLogMode(mode string) (rules.LogOptions, error) {
	switch mode {
	case "all":
		return rules.LogOptions{OnSuccess: true, OnFailure: true}, nil
	case "success":
		return rules.LogOptions{OnSuccess: true}, nil
	case "failure":
		return rules.LogOptions{OnFailure: true}, nil
	case "none":
		return rules.LogOptions{}, nil
	default:
		return rules.LogOptions{}, fmt.Errorf("invalid log mode %q", mode)
	}
}

func runScenario(w io.Writer, format, path string, logOpts rules.LogOptions) error {
	sc, err := LoadScenario(path)
	if err != nil {
		return err
	}

	se, err := sc.build()
	if err != nil {
		return err
	}

	se.engine.Log().SetLogging(logOpts)
	se.engine.Log().SetLogCallback(se.board.LogFunc(se.registry))

	if err := se.dispatch(sc.Events); err != nil {
		return err
	}

	snap := se.board.Snapshot()
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(RunResult{
			Rules:      len(se.rules),
			Events:     len(sc.Events),
			Log:        snap.Log,
			Alerts:     snap.Alerts,
			Background: snap.Background,
		})
	}

	return writeText(w, snap)
}

func writeText(w io.Writer, snap board.Snapshot) error {
	for _, line := range snap.Log {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	for _, alert := range snap.Alerts {
		if _, err := fmt.Fprintf(w, "alert: %s\n", alert); err != nil {
			return err
		}
	}
	if snap.Background != "" {
		if _, err := fmt.Fprintf(w, "background: %s\n", snap.Background); err != nil {
			return err
		}
	}
	return nil
}
