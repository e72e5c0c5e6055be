package main

import (
	"github.com/danmuck/oscctl/internal/logging"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	opts := &cliOptions{}
	var cfg appConfig

	root := &cobra.Command{
		Use:   "oscctl",
		Short: "Drive Resolume Arena over OSC/UDP",
		Long: `oscctl sends OSC control messages (clip triggers, layer solo, opacity)
to Resolume Arena over UDP, either one-shot from the command line or through
an HTTP control surface started with "oscctl serve".`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logging.ConfigureRuntime()
			loaded, err := loadAppConfig(opts.configPath)
			if err != nil {
				return errors.Wrap(err, "loading config")
			}
			cfg = loaded
			level := opts.logLevel
			if level == "" {
				level = cfg.LogLevel
			}
			if level != "" && !logging.SetLevel(level) {
				return errors.Errorf("unknown log level %q", level)
			}
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "path to oscctl.toml")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	flags.StringVar(&opts.host, "host", "", "target host, overrides stored settings for this run")
	flags.StringVar(&opts.port, "port", "", "target port, overrides stored settings for this run")

	cfgFn := func() appConfig { return cfg }
	root.AddCommand(
		newServeCmd(cfgFn, opts),
		newSendCmd(cfgFn, opts),
		newClipCmd(cfgFn, opts),
		newTriggerLayerCmd(cfgFn, opts),
		newOpacityCmd(cfgFn, opts),
		newDiagCmd(cfgFn, opts),
		newCatalogCmd(cfgFn, opts),
		newSettingsCmd(cfgFn, opts),
	)
	return root
}
