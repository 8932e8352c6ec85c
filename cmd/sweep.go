/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"time"

	"github.com/scoutline/apiserver/config"
	"github.com/scoutline/apiserver/internal/db"
	"github.com/scoutline/apiserver/internal/store"
	"github.com/spf13/cobra"
)

// sweepCmd purges expired one-time codes once and exits. Intended for cron
// when the in-process sweeper is disabled.
var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Delete expired one-time codes",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()

		dbConn, err := db.Open(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer func() {
			_ = dbConn.Close()
		}()

		codes := store.NewCodeRepository(dbConn)
		deleted, err := codes.DeleteExpired(cmd.Context(), time.Now())
		if err != nil {
			return fmt.Errorf("sweep failed: %w", err)
		}

		fmt.Printf("deleted %d expired codes\n", deleted)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}
