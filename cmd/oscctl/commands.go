package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/danmuck/oscctl/internal/catalog"
	"github.com/danmuck/oscctl/internal/protocol"
	"github.com/danmuck/oscctl/internal/transport"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// parseArg reads one OSC argument. An explicit "i:", "f:" or "s:" prefix
// picks the type; otherwise integers become int32, other numbers float32,
// and everything else a string.
func parseArg(raw string) (any, error) {
	if tag, val, ok := strings.Cut(raw, ":"); ok {
		switch tag {
		case "i":
			n, err := strconv.ParseInt(val, 10, 32)
			if err != nil {
				return nil, errors.Wrapf(err, "parsing int argument %q", raw)
			}
			return protocol.Int(n), nil
		case "f":
			f, err := strconv.ParseFloat(val, 32)
			if err != nil {
				return nil, errors.Wrapf(err, "parsing float argument %q", raw)
			}
			return protocol.Float(f), nil
		case "s":
			return protocol.String(val), nil
		}
	}
	if n, err := strconv.ParseInt(raw, 10, 32); err == nil {
		return protocol.Int(n), nil
	}
	if f, err := strconv.ParseFloat(raw, 32); err == nil {
		return protocol.Float(f), nil
	}
	return protocol.String(raw), nil
}

func parsePositive(name, raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return 0, errors.Errorf("%s must be a positive integer, got %q", name, raw)
	}
	return n, nil
}

func newSendCmd(cfgFn func() appConfig, opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "send <address> [i:N|f:X|s:T|value...]",
		Short: "Send one raw OSC message",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := protocol.ParseAddress(args[0])
			if err != nil {
				return errors.Wrap(err, "parsing address")
			}
			oscArgs := make([]any, 0, len(args)-1)
			for _, raw := range args[1:] {
				v, err := parseArg(raw)
				if err != nil {
					return err
				}
				oscArgs = append(oscArgs, v)
			}

			cfg := cfgFn()
			current, err := loadTarget(cmd.Context(), cfg, opts)
			if err != nil {
				return err
			}
			host, port, err := current.Target()
			if err != nil {
				return errors.Wrap(err, "resolving target")
			}

			tr := transport.New(cfg.transportConfig())
			defer tr.Disconnect()
			if err := tr.Connect(cmd.Context(), host, port); err != nil {
				return errors.Wrap(err, "connecting")
			}
			msg := protocol.Message{Address: addr.String(), Args: oscArgs}
			if err := tr.Send(cmd.Context(), msg.Address, msg.Args...); err != nil {
				return errors.Wrap(err, "sending")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", okStyle.Render("sent"), msg)
			return nil
		},
	}
}

// runOnSession opens a router for one command, runs fn, and prints the
// resulting state.
func runOnSession(cmd *cobra.Command, cfg appConfig, opts *cliOptions, layers int, fn func(ctx context.Context, s *session) error) error {
	sess, err := openSession(cmd.Context(), cfg, opts, layers)
	if err != nil {
		return err
	}
	defer sess.Close()
	runErr := fn(cmd.Context(), sess)
	renderState(cmd.OutOrStdout(), sess.router.Snapshot())
	return runErr
}

func newClipCmd(cfgFn func() appConfig, opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clip <layer> <clip>",
		Short: "Trigger one clip",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			layer, err := parsePositive("layer", args[0])
			if err != nil {
				return err
			}
			clip, err := parsePositive("clip", args[1])
			if err != nil {
				return err
			}
			if clip > catalog.ClipsPerLayer {
				return errors.Errorf("clip must be in 1..%d, got %d", catalog.ClipsPerLayer, clip)
			}
			return runOnSession(cmd, cfgFn(), opts, layer, func(ctx context.Context, s *session) error {
				s.router.SelectLayer(layer)
				return errors.Wrap(s.router.Dispatch(ctx, catalog.ClipsForLayer(layer)[clip-1]), "dispatching clip")
			})
		},
	}
}

func newTriggerLayerCmd(cfgFn func() appConfig, opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "trigger-layer <layer>",
		Short: "Trigger every clip of a layer in order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			layer, err := parsePositive("layer", args[0])
			if err != nil {
				return err
			}
			return runOnSession(cmd, cfgFn(), opts, layer, func(ctx context.Context, s *session) error {
				_, err := s.router.TriggerAllClipsInLayer(ctx, layer)
				return errors.Wrap(err, "triggering layer")
			})
		},
	}
}

func newOpacityCmd(cfgFn func() appConfig, opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "opacity <layer> <value>",
		Short: "Set a layer's opacity (0..1)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			layer, err := parsePositive("layer", args[0])
			if err != nil {
				return err
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(args[1]), 32)
			if err != nil {
				return errors.Wrapf(err, "parsing opacity %q", args[1])
			}
			return runOnSession(cmd, cfgFn(), opts, layer, func(ctx context.Context, s *session) error {
				s.router.SelectLayer(layer)
				s.router.UpdateOpacity(float32(v))
				return errors.Wrap(s.router.CommitOpacity(ctx), "sending opacity")
			})
		},
	}
}

func newDiagCmd(cfgFn func() appConfig, opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "diag",
		Short: "Send the /composition/master reception probe",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnSession(cmd, cfgFn(), opts, 0, func(ctx context.Context, s *session) error {
				return errors.Wrap(s.router.SendDiagnostic(ctx), "sending diagnostic")
			})
		},
	}
}

func newCatalogCmd(cfgFn func() appConfig, opts *cliOptions) *cobra.Command {
	var (
		layer  int
		format string
	)
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List the available commands",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validFormat(format); err != nil {
				return err
			}
			if layer < 1 {
				return errors.Errorf("layer must be a positive integer, got %d", layer)
			}
			sheet := catalog.NewSheet(layer, max(cfgFn().Layers, layer))
			if done, err := writeStructured(cmd.OutOrStdout(), format, sheet); done {
				return err
			}
			renderSheet(cmd.OutOrStdout(), sheet)
			return nil
		},
	}
	cmd.Flags().IntVarP(&layer, "layer", "l", 1, "layer whose clips are listed")
	cmd.Flags().StringVarP(&format, "output", "o", formatTable, "output format (table, yaml, json)")
	return cmd
}
