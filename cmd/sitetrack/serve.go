package main

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"sitetrack/internal/config"
	"sitetrack/internal/devserver"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the local development backend",
		Long: `Starts a local stand-in for the hosted store: the same auth and REST
surface, backed by a SQLite file. Point SITETRACK_STORE_URL at it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			dsn, _ := cmd.Flags().GetString("db")
			addr, _ := cmd.Flags().GetString("addr")

			db, err := devserver.NewDB(dsn)
			if err != nil {
				return fmt.Errorf("db: %w", err)
			}
			sqlDB, err := db.DB()
			if err == nil {
				defer sqlDB.Close()
			}

			log.Printf("dev store listening on %s (db %s)", addr, dsn)
			return devserver.NewServer(db, cfg.StoreKey).Run(addr)
		},
	}
	cmd.Flags().String("addr", ":54321", "listen address")
	cmd.Flags().String("db", "sitetrack_dev.db", "SQLite database path")
	return cmd
}
