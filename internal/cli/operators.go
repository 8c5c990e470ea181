package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/liamcoop/arules/rules"
)

// NewOperatorsCommand creates the operators command
func NewOperatorsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "operators",
		Short: "List supported condition operators",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if rootOpts.Format == "json" {
				return json.NewEncoder(out).Encode(rules.Operators())
			}
			for _, op := range rules.Operators() {
				if _, err := fmt.Fprintln(out, op); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
