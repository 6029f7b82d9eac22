package main

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"catenrich/internal/config"
)

func newRootCmd() *cobra.Command {
	cfg := &config.Config{}

	root := &cobra.Command{
		Use:           "enricher",
		Short:         "Categorize ingested documents with a remote categorization service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			config.LoadEnv()
			loaded, err := config.Load()
			if err != nil {
				return err
			}
			if err := config.ConfigureLogging(loaded.Log); err != nil {
				return err
			}
			*cfg = *loaded
			return nil
		},
	}
	root.AddCommand(newRunCmd(cfg), newCategorizeCmd(cfg))
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.WithError(err).Error("enricher failed")
		os.Exit(1)
	}
}
