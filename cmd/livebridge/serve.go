package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/livebridge/livebridge/internal/bridge"
	"github.com/livebridge/livebridge/internal/config"
	"github.com/livebridge/livebridge/internal/logging"
	"github.com/livebridge/livebridge/internal/osc"
	"github.com/livebridge/livebridge/internal/server"
	"github.com/livebridge/livebridge/internal/session"
	"github.com/livebridge/livebridge/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bridge",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		logging.SetLevel(cfg.LogLevel)
		log := logging.Component("main")

		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		conn, err := osc.Dial(cfg.ListenAddr(), cfg.SendAddr())
		if err != nil {
			return err
		}

		store := session.NewStore()
		client := osc.NewClient(conn, osc.NewCorrelator(cfg.QueryTimeout))
		b := bridge.New(cfg, store, client)

		hub := server.NewHub()
		b.AttachHub(hub)

		log.Infof("livebridge starting: osc %s <-> %s", cfg.ListenAddr(), cfg.SendAddr())

		go func() {
			if err := conn.Serve(b.HandleOSC); err != nil && ctx.Err() == nil {
				log.WithError(err).Error("osc serve stopped")
				cancel()
			}
		}()
		go func() {
			<-ctx.Done()
			conn.Close()
		}()
		go b.Run(ctx)

		return server.New(cfg, hub, b, web.Assets).Run(ctx)
	},
}
