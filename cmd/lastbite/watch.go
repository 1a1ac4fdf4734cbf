package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labujaya/lastbite/internal/modal"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

func watchCommand(r *runner) *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "print order status updates until interrupted",
		Action: func(c *cli.Context) error {
			a, err := r.session(c)
			if err != nil {
				return err
			}
			changes, unsubscribe := a.Hub.Subscribe(16)
			defer unsubscribe()

			if err := a.Watch(c.Context); err != nil {
				return r.fail(err, "failed to subscribe to order updates")
			}
			if userID, ok := a.UserID(); ok {
				r.printf("watching orders of user %s, press Ctrl+C to stop\n", userID)
			}

			g, ctx := errgroup.WithContext(c.Context)
			if addr := r.cfg.Metrics.Addr; addr != "" {
				server := &http.Server{
					Addr:              addr,
					Handler:           metricsHandler(a.Gatherer()),
					ReadHeaderTimeout: shutdownTimeout,
				}
				g.Go(func() error {
					r.logg.Info(r.logg.WithField(ctx, "addr", addr), "serving metrics")
					if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						return err
					}
					return nil
				})
				g.Go(func() error {
					<-ctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
					defer cancel()
					return server.Shutdown(shutdownCtx)
				})
			}
			g.Go(func() error {
				for {
					select {
					case <-ctx.Done():
						return nil
					case change, ok := <-changes:
						if !ok {
							return nil
						}
						if change.Store != modal.StoreName || change.Op != "show" {
							continue
						}
						snap := a.Modal.Snapshot()
						r.printf("[%s] %s\n", snap.Type, snap.Message)
					}
				}
			})
			return g.Wait()
		},
	}
}

func metricsHandler(g prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	return mux
}
