package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/campusfeed/notice-crawler/internal/store/postgres"
)

func newWebhookCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "webhook",
		Short: "Manages webhook destinations",
	}
	cmd.AddCommand(newWebhookAddCmd(), newWebhookListCmd())
	return cmd
}

func newWebhookAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <url>",
		Short: "Registers a new active webhook destination",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck // best-effort flush

			store, err := postgres.New(cmd.Context(), postgres.Config{DSN: cfg.DB.DSN}, logger)
			if err != nil {
				return fmt.Errorf("init store: %w", err)
			}
			defer store.Close()

			hook, err := store.CreateWebhook(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("create webhook: %w", err)
			}
			logger.Info("webhook registered",
				zap.Int64("id", hook.ID), zap.String("url", hook.URL))
			return nil
		},
	}
}

func newWebhookListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Prints every registered webhook destination",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck // best-effort flush

			store, err := postgres.New(cmd.Context(), postgres.Config{DSN: cfg.DB.DSN}, logger)
			if err != nil {
				return fmt.Errorf("init store: %w", err)
			}
			defer store.Close()

			hooks, err := store.Webhooks(cmd.Context())
			if err != nil {
				return fmt.Errorf("list webhooks: %w", err)
			}
			for _, hook := range hooks {
				state := "inactive"
				if hook.IsActive {
					state = "active"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%s\n", hook.ID, state, hook.URL)
			}
			return nil
		},
	}
}
