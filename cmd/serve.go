package main

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/xhad/pagechat/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and websocket API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		p, err := initPipeline(ctx, cfg, nil)
		if err != nil {
			return err
		}
		defer p.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := server.NewServer(server.Config{
			Port:         port,
			ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSecs) * time.Second,
			WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSecs) * time.Second,
		}, p.scraper, p.slot, p.engine, p.history)

		return srv.ListenAndServe(ctx)
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
