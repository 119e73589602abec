package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/talkincode/cafestock/internal/adminapi"
	"github.com/talkincode/cafestock/internal/domain"
	"github.com/talkincode/cafestock/internal/webserver"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func newServeCmd(c *cli) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the admin API and the background jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := c.cfg
			if cmd.Flags().Changed("port") {
				cfg.Web.Port = port
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			adminapi.Init()
			srv := webserver.NewAdminServer(webserver.Config{
				Host:      cfg.Web.Host,
				Port:      cfg.Web.Port,
				BodyLimit: cfg.Web.BodyLimit,
				Debug:     cfg.System.Debug,
			}, c.application, domain.Validator())

			c.application.StartBackgroundJobs(ctx)

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				zap.S().Infof("admin api listening on %s", srv.Addr())
				return srv.Start()
			})
			g.Go(func() error {
				<-gctx.Done()
				return srv.Shutdown(context.Background())
			})
			return g.Wait()
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port, overrides web.port")
	return cmd
}
