package main

import (
	"context"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newSettingsCmd(cfgFn func() appConfig, opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change the stored OSC target",
	}

	var format string
	show := &cobra.Command{
		Use:   "show",
		Short: "Print the stored target",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validFormat(format); err != nil {
				return err
			}
			cfg := cfgFn()
			provider, closeProvider, err := openProvider(cfg)
			if err != nil {
				return errors.Wrap(err, "opening settings store")
			}
			defer closeProvider()
			current, err := provider.Load(cmd.Context())
			if err != nil {
				return errors.Wrap(err, "loading settings")
			}
			if format == formatTable {
				format = formatYAML
			}
			_, err = writeStructured(cmd.OutOrStdout(), format, current)
			return err
		},
	}
	show.Flags().StringVarP(&format, "output", "o", formatYAML, "output format (yaml, json)")

	set := &cobra.Command{
		Use:   "set <host> <port>",
		Short: "Store a new target and connect to it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnSession(cmd, cfgFn(), opts, 0, func(ctx context.Context, s *session) error {
				return errors.Wrap(s.router.SaveSettings(ctx, args[0], args[1]), "saving settings")
			})
		},
	}

	cmd.AddCommand(show, set)
	return cmd
}
