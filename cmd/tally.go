package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/harborlight-fund/grantflow/internal/model"
	"github.com/harborlight-fund/grantflow/internal/scoring"
	"github.com/harborlight-fund/grantflow/internal/voting"
)

var tallyRoster []string

var tallyCmd = &cobra.Command{
	Use:   "tally <application-id>",
	Short: "Show vote tally and budget score aggregate for an application",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		roster := make([]model.Reviewer, 0, len(tallyRoster))
		for _, entry := range tallyRoster {
			id, name, _ := strings.Cut(entry, "=")
			roster = append(roster, model.Reviewer{ID: id, Name: name})
		}

		tally, err := voting.New(st).Tally(cmd.Context(), args[0], roster)
		if err != nil {
			return err
		}
		agg, err := scoring.New(st).AggregateScores(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		return printJSON(map[string]any{
			"tally":   tally,
			"budgets": agg,
		})
	},
}

func init() {
	tallyCmd.Flags().StringArrayVar(&tallyRoster, "reviewer", nil, "roster entry as id=name; repeatable")
	rootCmd.AddCommand(tallyCmd)
}
