package main

import (
	"github.com/spf13/cobra"

	"eventsaga/internal/infrastructure/postgres"
)

func newLedgerCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect the dedup ledger",
	}

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "Print the most recently processed messages",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()

			pool, err := a.factory.Postgres(ctx)
			if err != nil {
				return err
			}
			entries, err := postgres.NewLedgerRepository(pool).ListRecent(ctx, limit)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), entries)
		},
	}
	list.Flags().IntVarP(&limit, "limit", "n", 20, "number of entries")

	cmd.AddCommand(list)
	return cmd
}
