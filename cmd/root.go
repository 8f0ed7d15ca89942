package cmd

import (
	"fmt"
	"log"
	"os"

	"cinema-core/pkg/utils"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app carries what every subcommand needs once the root has loaded it.
type app struct {
	configPath string
	config     *utils.Config
	logger     *zap.Logger
}

func NewRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "cinema",
		Short:         "Cinema repository core: movies, tickets and users over a document store",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			config, err := utils.LoadConfig(a.configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			logger, err := utils.InitLogger(config.App.LogPath, config.App.Debug)
			if err != nil {
				log.Printf("Failed to init logger: %v. Using standard log.", err)
				logger, _ = zap.NewProduction()
			}

			a.config = config
			a.logger = logger.With(zap.String("command", cmd.Name()))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", ".env", "Path to the env config file")

	root.AddCommand(newServeCommand(a))
	root.AddCommand(newMigrateCommand(a))
	root.AddCommand(newSeedCommand(a))
	return root
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}
