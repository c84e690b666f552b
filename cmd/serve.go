package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/xhad/shopsage/server"
)

var flagPort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and WebSocket API",
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagPort != 0 {
			cfg.Server.Port = flagPort
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		api := server.New(server.Config{
			DefaultShop: cfg.Server.DefaultShop,
			CORSOrigins: cfg.Server.CORSOrigins,
		}, server.Deps{
			Stats:   a.store,
			Ingest:  a.pipeline(nil),
			Answers: a.orchestrator,
			Orders:  a.shopify,
		})

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           api.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			log.Printf("Starting server on port %d (chat=%s, embed=%s, db=%s)",
				cfg.Server.Port, cfg.Ollama.ChatModel, cfg.Ollama.EmbedModel, cfg.Database.Driver)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			log.Printf("Shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
		return g.Wait()
	},
}

func init() {
	serveCmd.Flags().IntVarP(&flagPort, "port", "p", 0, "listen port (default 8787)")
}
