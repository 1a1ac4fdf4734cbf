package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/labujaya/lastbite/internal/app"
	"github.com/labujaya/lastbite/pkg/config"
	"github.com/labujaya/lastbite/pkg/logger"
	"github.com/urfave/cli/v2"
)

const serviceName = "lastbite"

func main() {
	logg := logger.New(logger.Options{ServiceName: serviceName})

	if err := godotenv.Load(); err != nil {
		logg.Debug(context.Background(), ".env file not found, relying on environment")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r := &runner{out: os.Stdout}
	if err := newCLI(r).RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// runner opens the app lazily so help and usage errors work without a
// configured environment.
type runner struct {
	out  io.Writer
	cfg  *config.Config
	logg *logger.Logger
	app  *app.App
}

func (r *runner) open(c *cli.Context) (*app.App, error) {
	if r.app != nil {
		return r.app, nil
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, cli.Exit(fmt.Sprintf("failed to load config: %v", err), 1)
	}
	logg := logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	a, err := app.New(c.Context, app.Params{
		Config:     cfg,
		Logger:     logg,
		NoRealtime: true,
	})
	if err != nil {
		logg.Error(c.Context, "failed to build client", err)
		return nil, cli.Exit(err.Error(), 1)
	}
	if _, err := a.Start(c.Context); err != nil {
		logg.Warn(logg.WithField(c.Context, "error", err.Error()), "restoring session failed")
	}
	r.cfg, r.logg, r.app = cfg, logg, a
	return a, nil
}

// session opens the app and requires a signed-in user.
func (r *runner) session(c *cli.Context) (*app.App, error) {
	a, err := r.open(c)
	if err != nil {
		return nil, err
	}
	if !a.Auth.Snapshot().IsAuthenticated {
		return nil, cli.Exit("not signed in, run `lastbite login` first", 1)
	}
	return a, nil
}

func (r *runner) close(c *cli.Context) error {
	if r.app == nil {
		return nil
	}
	if err := r.app.Stop(); err != nil {
		r.logg.Error(c.Context, "error stopping client", err)
		return err
	}
	return nil
}

// fail shows err the way the app reports failures and turns it into an
// exit error carrying the same message.
func (r *runner) fail(err error, fallback string) error {
	r.app.Notify(err, fallback)
	return cli.Exit(r.app.Modal.Snapshot().Message, 1)
}

func (r *runner) printf(format string, args ...any) {
	fmt.Fprintf(r.out, format, args...)
}

func newCLI(r *runner) *cli.App {
	return &cli.App{
		Name:  serviceName,
		Usage: "order surplus food from the LastBite marketplace",
		After: r.close,
		Commands: []*cli.Command{
			loginCommand(r),
			registerCommand(r),
			logoutCommand(r),
			whoamiCommand(r),
			menuCommand(r),
			cartCommand(r),
			orderCommand(r),
			reviewCommand(r),
			profileCommand(r),
			resourceCommand(r, "seller", "show a seller by id", func(a *app.App) resourceGetter { return a.API.Sellers() }),
			resourceCommand(r, "payment", "show a payment by order id", func(a *app.App) resourceGetter { return a.API.Payments() }),
			watchCommand(r),
		},
	}
}
