package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dvloznov/bank-operations/internal/config"
	"github.com/dvloznov/bank-operations/internal/fixtures"
	"github.com/dvloznov/bank-operations/internal/logger"
	"github.com/dvloznov/bank-operations/internal/session"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app is the state shared by the subcommands once the root has run.
type app struct {
	envFile  string
	logLevel string

	cfg *config.Config
	log zerolog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{log: logger.New()}

	root := &cobra.Command{
		Use:   "operations",
		Short: "Retrieve bank account operations",
		Long: `operations retrieves the operations of a bank account over a date range,
or the pending deferred-debit operations of a card, and prints them as JSON.

Responses can be replayed from fixtures (USE_MOCKS_DIR) and recorded as
fixtures (WRITE_MOCKS_DIR). Either location may be a directory or a
gs://bucket/prefix URI.`,
		PersistentPreRunE: a.setup,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level, overrides LOG_LEVEL")

	root.AddCommand(
		newFetchCmd(a),
		newFetchCardCmd(a),
		newExportCmd(a),
		newQueryCmd(a),
		newMigrateCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.envFile)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	a.cfg = cfg
	a.log = logger.NewWithLevel(cfg.LogLevel)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(logger.WithContext(ctx, a.log))
	return nil
}

// openSession builds the session described by the configuration. The
// returned fixture set must be closed by the caller.
func (a *app) openSession(ctx context.Context) (*session.Context, *fixtures.Set, error) {
	if err := a.cfg.RequireBank(); err != nil {
		return nil, nil, err
	}

	cookies, err := session.ParseCookieHeader(a.cfg.Cookies)
	if err != nil {
		return nil, nil, err
	}

	set, err := fixtures.Open(ctx, a.cfg.Fixtures)
	if err != nil {
		return nil, nil, err
	}

	sess, err := session.New(session.Options{
		BaseURL:      a.cfg.BaseURL,
		RegionalBank: a.cfg.RegionalBank,
		Cookies:      cookies,
		SSLVerify:    a.cfg.SSLVerify,
		Timeout:      a.cfg.HTTPTimeout,
		Fixtures:     set,
	})
	if err != nil {
		_ = set.Close()
		return nil, nil, err
	}

	if a.cfg.Fixtures.Enabled() {
		a.log.Info().Str("fixtures", a.cfg.Fixtures.String()).Msg("Fixtures enabled")
	}
	return sess, set, nil
}
