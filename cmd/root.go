package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/MimeLyc/subtitle-bot/internal/config"
	"github.com/MimeLyc/subtitle-bot/pkg/log"
)

// commandContext loads configuration once for every subcommand.
type commandContext struct {
	configFile string
	envFiles   []string

	cfg    *config.Config
	logger *log.Logger
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	if err := config.LoadDotEnv(c.envFiles...); err != nil {
		return nil, err
	}

	configFile := c.configFile
	if configFile == "" {
		configFile = os.Getenv("CONFIG_FILE")
	}

	var opts []config.Option
	if configFile != "" {
		settings, err := config.LoadFile(configFile)
		if err != nil {
			return nil, err
		}
		opts = append(opts, config.WithFileSettings(settings))
	}
	cfg, err := config.NewFromEnv(opts...)
	if err != nil {
		return nil, err
	}

	logger, err := log.New(log.Options{
		Level:  log.ParseLevel(cfg.Log.Level),
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
	})
	if err != nil {
		return nil, err
	}
	log.SetGlobal(logger)

	c.cfg = cfg
	c.logger = logger
	return cfg, nil
}

func (c *commandContext) close() {
	if c.logger != nil {
		_ = c.logger.Close()
	}
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "subtitle-bot",
		Short:         "Transcribe, translate and subtitle media sent to a Telegram bot",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.HasParent() {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			ctx.close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&ctx.configFile, "config", "c", "", "TOML configuration file (default $CONFIG_FILE)")
	rootCmd.PersistentFlags().StringSliceVar(&ctx.envFiles, "env-file", nil, "dotenv files to load (default .env)")

	rootCmd.AddCommand(newServeCommand(ctx))
	rootCmd.AddCommand(newTranscribeCommand(ctx))

	return rootCmd
}
