package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"panscan/internal/deps"
	"panscan/internal/services"
)

func newDepsCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "deps",
		Short: "Check that the configured external tools are installed",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			statuses := deps.CheckBinaries(deps.Requirements(cfg))

			if asJSON || !interactive(cmd) {
				if err := writeJSON(cmd, statuses); err != nil {
					return err
				}
			} else {
				rows := make([][]string, 0, len(statuses))
				for _, s := range statuses {
					state := "available"
					if !s.Available {
						state = "missing"
					}
					version := s.Version
					if version == "" {
						version = "-"
					}
					rows = append(rows, []string{s.Name, s.Command, state, version, yesNo(s.Optional), s.Detail})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Tool", "Command", "Status", "Version", "Optional", "Detail"},
					rows,
					nil,
				))
			}

			if missing := deps.Missing(statuses); len(missing) > 0 {
				return services.Wrap(services.ErrExternalTool, "deps", "check",
					"missing required tools: "+strings.Join(missing, ", "), nil)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print statuses as JSON")
	return cmd
}
