package main

import (
	"github.com/spf13/cobra"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"spritemov/config"
	"spritemov/history"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	var debugFlag bool

	rootCmd := &cobra.Command{
		Use:           "spritemov",
		Short:         "Render a moving sprite into a transparent MOV",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if debugFlag {
				log.SetLevel(log.DebugLevel)
			}
			if configFlag == "" {
				return nil
			}
			return config.Load(cmd.Context(), configFlag)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path (JSON)")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(newRenderCommand())
	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newHistoryCommand())
	rootCmd.AddCommand(newCheckCommand())
	return rootCmd
}

// openStore returns the configured history store. Without a database DSN the
// store lives in memory and db is nil.
func openStore(cfg *config.Config) (history.Store, *gorm.DB, error) {
	if cfg.DatabaseDSN == "" {
		return history.NewMemoryStore(), nil, nil
	}
	db, err := history.Open(cfg.DatabaseDSN)
	if err != nil {
		return nil, nil, err
	}
	store, err := history.NewGormStore(db)
	if err != nil {
		return nil, nil, err
	}
	return store, db, nil
}
