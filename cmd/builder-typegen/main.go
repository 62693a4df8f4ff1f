package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yousuf/builder-typegen/internal/config"
)

func main() {
	if err := New().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// App holds what every subcommand needs once flags are parsed.
type App struct {
	ConfigPath string
	Verbose    bool

	cfg *config.Config
	log *logrus.Logger
}

// New builds the root command.
func New() *cobra.Command {
	app := &App{}

	root := &cobra.Command{
		Use:           "builder-typegen",
		Short:         "Generate TypeScript interfaces from Builder.io model schemas",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.load(cmd)
		},
	}
	root.PersistentFlags().StringVarP(&app.ConfigPath, "config", "c", os.Getenv("TYPEGEN_CONFIG"), "Path to config file (yaml or json)")
	root.PersistentFlags().BoolVarP(&app.Verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		NewGenerate(app),
		NewCheck(app),
	)
	return root
}

func (a *App) load(cmd *cobra.Command) error {
	cfg, err := config.LoadWithOptions(config.LoadOptions{
		ConfigPath:        a.ConfigPath,
		SearchPaths:       config.DefaultSearchPaths(),
		AllowEnvOverrides: true,
	})
	if err != nil {
		return fmt.Errorf("failed to load config: %w\n\nHint: Specify a config file with --config or TYPEGEN_CONFIG", err)
	}

	log, err := cfg.NewLogger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	if a.Verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	a.cfg = cfg
	a.log = log
	return nil
}
