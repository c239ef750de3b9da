package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dvloznov/bank-operations/internal/domain"
	"github.com/dvloznov/bank-operations/internal/operations"
	"github.com/spf13/cobra"
)

type accountFlags struct {
	accountIdx string
	familyCode string
}

func (f *accountFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.accountIdx, "account", "", "account index (compteIdx)")
	cmd.Flags().StringVar(&f.familyCode, "family", "", "account family code (grandeFamilleCode)")
	_ = cmd.MarkFlagRequired("account")
	_ = cmd.MarkFlagRequired("family")
}

func newFetchCmd(a *app) *cobra.Command {
	var (
		account  accountFlags
		start    string
		end      string
		count    int
		pageSize int
		delay    time.Duration
		export   bool
	)

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch the operations of an account between two dates",
		Example: `  operations fetch --account 0 --family 1 --start 2024-01-01 --end 2024-01-31
  operations fetch --account 0 --family 1 --start 2024-01-01 --end 2024-12-31 --count 300 --delay 1s`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			sess, set, err := a.openSession(ctx)
			if err != nil {
				return err
			}
			defer set.Close()

			ops, err := operations.Fetch(ctx, sess, account.accountIdx, account.familyCode, start, end,
				operations.WithCount(count),
				operations.WithPageSize(pageSize),
				operations.WithDelay(delay),
			)
			if err != nil {
				return err
			}

			if export {
				if err := a.export(ctx, ops, exportTarget{accountIdx: account.accountIdx, familyCode: account.familyCode}); err != nil {
					return err
				}
			}
			return writeOperations(cmd.OutOrStdout(), ops)
		},
	}

	account.register(cmd)
	cmd.Flags().StringVar(&start, "start", "", "first day, YYYY-MM-DD")
	cmd.Flags().StringVar(&end, "end", "", "last day, YYYY-MM-DD")
	cmd.Flags().IntVar(&count, "count", operations.DefaultCount, "number of operations to ask for")
	cmd.Flags().IntVar(&pageSize, "page-size", operations.DefaultPageSize, "operations per page")
	cmd.Flags().DurationVar(&delay, "delay", 0, "pause between pages")
	cmd.Flags().BoolVar(&export, "export", false, "also store the operations in BigQuery")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	return cmd
}

func newFetchCardCmd(a *app) *cobra.Command {
	var (
		account accountFlags
		cardIdx string
		export  bool
	)

	cmd := &cobra.Command{
		Use:     "fetch-card",
		Short:   "Fetch the pending deferred-debit operations of a card",
		Example: `  operations fetch-card --account 0 --family 1 --card 0`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			sess, set, err := a.openSession(ctx)
			if err != nil {
				return err
			}
			defer set.Close()

			ops, err := operations.FetchDeferred(ctx, sess, account.accountIdx, account.familyCode, cardIdx)
			if err != nil {
				return err
			}

			if export {
				target := exportTarget{accountIdx: account.accountIdx, familyCode: account.familyCode, cardIdx: cardIdx}
				if err := a.export(ctx, ops, target); err != nil {
					return err
				}
			}
			return writeOperations(cmd.OutOrStdout(), ops)
		},
	}

	account.register(cmd)
	cmd.Flags().StringVar(&cardIdx, "card", "", "card index (carteIdx)")
	cmd.Flags().BoolVar(&export, "export", false, "also store the operations in BigQuery")
	_ = cmd.MarkFlagRequired("card")
	return cmd
}

func writeOperations(w io.Writer, ops *domain.Operations) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(ops); err != nil {
		return fmt.Errorf("writing operations: %w", err)
	}
	return nil
}
