package main

import (
	"context"
	"fmt"
	"os"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/bank-operations/internal/domain"
	infraBQ "github.com/dvloznov/bank-operations/internal/infra/bigquery"
	"github.com/spf13/cobra"
)

type exportTarget struct {
	accountIdx string
	familyCode string
	cardIdx    string
}

func (a *app) openRepository(ctx context.Context) (*infraBQ.BigQueryOperationRepository, error) {
	if a.cfg.BigQueryProject == "" {
		return nil, fmt.Errorf("BIGQUERY_PROJECT is required")
	}
	return infraBQ.NewBigQueryOperationRepository(ctx, a.cfg.BigQueryProject, a.cfg.BigQueryDataset)
}

func (a *app) export(ctx context.Context, ops *domain.Operations, target exportTarget) error {
	repo, err := a.openRepository(ctx)
	if err != nil {
		return err
	}
	defer repo.Close()

	rows := infraBQ.ToOperationRows(ops, infraBQ.ExportMeta{
		FamilyCode: target.familyCode,
		AccountIdx: target.accountIdx,
		CardIdx:    target.cardIdx,
	})
	if err := repo.InsertOperations(ctx, rows); err != nil {
		return err
	}

	a.log.Info().
		Int("rows", len(rows)).
		Str("dataset", a.cfg.BigQueryDataset).
		Msg("Operations exported")
	return nil
}

func newExportCmd(a *app) *cobra.Command {
	var (
		account accountFlags
		cardIdx string
		file    string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Store operations previously printed by fetch in BigQuery",
		Example: `  operations fetch --account 0 --family 1 --start 2024-01-01 --end 2024-01-31 > jan.json
  operations export --account 0 --family 1 --file jan.json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("reading %s: %w", file, err)
			}
			ops, err := domain.DecodeOperations(data)
			if err != nil {
				return err
			}
			return a.export(cmd.Context(), ops, exportTarget{
				accountIdx: account.accountIdx,
				familyCode: account.familyCode,
				cardIdx:    cardIdx,
			})
		},
	}

	account.register(cmd)
	cmd.Flags().StringVar(&cardIdx, "card", "", "card index, for deferred-card operations")
	cmd.Flags().StringVar(&file, "file", "", "JSON array of operations")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newQueryCmd(a *app) *cobra.Command {
	var (
		accountIdx string
		start      string
		end        string
	)

	cmd := &cobra.Command{
		Use:   "query",
		Short: "List the operations stored in BigQuery for an account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			startDate, err := civil.ParseDate(start)
			if err != nil {
				return fmt.Errorf("invalid --start: %w", err)
			}
			endDate, err := civil.ParseDate(end)
			if err != nil {
				return fmt.Errorf("invalid --end: %w", err)
			}

			ctx := cmd.Context()
			repo, err := a.openRepository(ctx)
			if err != nil {
				return err
			}
			defer repo.Close()

			rows, err := repo.QueryOperationsByDateRange(ctx, accountIdx, startDate, endDate)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, r := range rows {
				fmt.Fprintf(out, "%s  %-10s  %12s %s  %s\n",
					r.OperationDate, r.Source, r.Amount.FloatString(2), r.Currency, r.Label)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&accountIdx, "account", "", "account index (compteIdx)")
	cmd.Flags().StringVar(&start, "start", "", "first day, YYYY-MM-DD")
	cmd.Flags().StringVar(&end, "end", "", "last day, YYYY-MM-DD")
	_ = cmd.MarkFlagRequired("account")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	return cmd
}

func newMigrateCmd(a *app) *cobra.Command {
	var appliedBy string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the BigQuery tables",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			repo, err := a.openRepository(ctx)
			if err != nil {
				return err
			}
			defer repo.Close()

			applied, err := repo.Migrate(ctx, appliedBy)
			if err != nil {
				return err
			}
			if applied == 0 {
				a.log.Info().Msg("No new migrations to apply")
				return nil
			}
			a.log.Info().Int("applied", applied).Msg("Migrations applied")
			return nil
		},
	}

	cmd.Flags().StringVar(&appliedBy, "applied-by", "operations-cli", "name recorded with each applied migration")
	return cmd
}
