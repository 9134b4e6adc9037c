package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"eli-dashboard/internal/config"
	"eli-dashboard/internal/factory"
	"eli-dashboard/internal/util"
)

const shutdownTimeout = 30 * time.Second

func main() {
	f, err := factory.NewFactory()
	if err != nil {
		util.Fatal("Failed to initialize factory", util.ErrorField(err))
	}
	defer f.Close()

	cfg := f.Config()
	router := f.Router()

	servers := buildServers(f, cfg, router)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	for _, s := range servers {
		g.Go(func() error {
			util.Info("Starting server",
				util.String("address", s.srv.Addr),
				util.Bool("tls", s.tls),
				util.String("environment", cfg.Environment),
			)
			if err := s.listen(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		util.Info("Shutting down servers")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		for _, s := range servers {
			if err := s.srv.Shutdown(shutdownCtx); err != nil {
				util.Error("Failed to shutdown server gracefully", util.String("address", s.srv.Addr), util.ErrorField(err))
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		util.Error("Server stopped with error", util.ErrorField(err))
		f.Close()
		os.Exit(1)
	}
	util.Info("Server shutdown completed")
}

type server struct {
	srv *http.Server
	tls bool
}

func (s server) listen() error {
	if s.tls {
		// certificates come from TLSConfig.GetCertificate
		return s.srv.ListenAndServeTLS("", "")
	}
	return s.srv.ListenAndServe()
}

// buildServers returns the API server plus, for ACME, the port 80 challenge
// listener.
func buildServers(f *factory.Factory, cfg *config.Config, router http.Handler) []server {
	api := &http.Server{
		Addr:              cfg.GetServerAddress(),
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	if !cfg.Server.EnableTLS {
		util.Warn("TLS is disabled", util.Int("port", cfg.Server.Port))
		return []server{{srv: api}}
	}

	tlsManager := f.TLSManager()
	api.TLSConfig = tlsManager.GetTLSConfig()

	acme := tlsManager.GetAutocertManager()
	if acme == nil {
		api.Addr = fmt.Sprintf(":%d", cfg.Server.TLSPort)
		return []server{{srv: api, tls: true}}
	}

	api.Addr = ":443"
	challenge := &http.Server{
		Addr:              ":80",
		Handler:           acme.HTTPHandler(nil),
		ReadHeaderTimeout: 10 * time.Second,
	}
	util.Info("AutoCert enabled", util.String("domain", cfg.Server.Domain))
	return []server{{srv: api, tls: true}, {srv: challenge}}
}
