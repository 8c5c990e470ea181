package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// NewValidateCommand creates the validate command
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <scenario.yaml>",
		Short: "Check a scenario's schemas, rules and events without dispatching",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := LoadScenario(args[0])
			if err != nil {
				return err
			}
			se, err := sc.build()
			if err != nil {
				return err
			}
			for i, ev := range sc.Events {
				if _, err := se.registry.Trigger(ev.Schema, ev.Event); err != nil {
					return fmt.Errorf("event %d: %w", i, err)
				}
			}

			out := cmd.OutOrStdout()
			if rootOpts.Format == "json" {
				return json.NewEncoder(out).Encode(map[string]any{
					"valid":   true,
					"schemas": se.registry.Schemas(),
					"rules":   len(se.rules),
					"events":  len(sc.Events),
				})
			}
			_, err = fmt.Fprintf(out, "ok: %d schema(s), %d rule(s), %d event(s)\n",
				len(se.registry.Schemas()), len(se.rules), len(sc.Events))
			return err
		},
	}
}
