/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/scoutline/apiserver/config"
	"github.com/scoutline/apiserver/internal/dispatch"
	"github.com/scoutline/apiserver/internal/mailer"
	"github.com/spf13/cobra"
)

// emailWorkerCmd consumes queued code emails and delivers them over SMTP.
// Only meaningful when the API server runs with a queue backend.
var emailWorkerCmd = &cobra.Command{
	Use:   "email-worker",
	Short: "Deliver queued code emails",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()

		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		broker, err := dispatch.NewBrokerFromConfig(ctx, cfg.Broker)
		if err != nil {
			return fmt.Errorf("broker init failed: %w", err)
		}
		queue := dispatch.New(broker)
		defer func() {
			_ = queue.Close()
		}()

		sender, err := mailer.NewSMTPMailer(cfg.SMTP, cfg.Auth.CodeTTL)
		if err != nil {
			return fmt.Errorf("smtp init failed: %w", err)
		}

		if err := mailer.RunWorker(ctx, queue, sender); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(emailWorkerCmd)
}
