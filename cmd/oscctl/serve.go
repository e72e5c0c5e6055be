package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/danmuck/oscctl/internal/control"
	"github.com/danmuck/oscctl/internal/logging"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCmd(cfgFn func() appConfig, opts *cliOptions) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP control surface",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := cfgFn()
			if listen != "" {
				cfg.ListenAddr = listen
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			sess, err := openSession(ctx, cfg, opts, 0)
			if err != nil {
				return err
			}
			defer func() {
				if err := sess.Close(); err != nil {
					logging.Warnf("oscctl.serve close err=%v", err)
				}
			}()

			srv := control.New(cfg.controlConfig(), sess.router)
			target := sess.router.Settings()
			logging.Infof("oscctl.serve addr=%s target=%s:%s backend=%s", srv.Addr(), target.Host, target.Port, cfg.SettingsBackend)

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return srv.Serve(gctx)
			})
			g.Go(func() error {
				<-gctx.Done()
				sess.router.Close()
				return nil
			})
			return errors.Wrap(g.Wait(), "serving control surface")
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "listen address, overrides listen_addr")
	return cmd
}
