// Command mtgp-demo serves the single-task vs. multitask GP demo page.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexflint/go-arg"

	"github.com/YuminosukeSato/mtgp/gp"
	"github.com/YuminosukeSato/mtgp/pipeline"
	"github.com/YuminosukeSato/mtgp/pkg/errors"
	"github.com/YuminosukeSato/mtgp/pkg/log"
	"github.com/YuminosukeSato/mtgp/render"
	"github.com/YuminosukeSato/mtgp/server"
)

type args struct {
	Addr       string        `arg:"env:MTGP_ADDR" help:"address to listen on"`
	LogLevel   string        `arg:"--log-level,env:MTGP_LOG_LEVEL" help:"debug, info, warn or error"`
	LogFormat  string        `arg:"--log-format,env:MTGP_LOG_FORMAT" help:"json or console"`
	Seed       uint64        `help:"seed of the synthetic data and posterior samples"`
	Samples    int           `help:"posterior samples drawn per model"`
	MaxEvals   int           `arg:"--max-evals" help:"optimizer evaluation budget per fit"`
	DisplayDPI int           `arg:"--display-dpi" help:"resolution of the in-page figure"`
	Timeout    time.Duration `help:"per-request computation limit"`
}

func (args) Description() string {
	return "Serves an interactive comparison of a single-task and a multitask Gaussian process fitted to synthetic data."
}

func main() {
	a := args{
		Addr:       ":8501",
		LogLevel:   "info",
		LogFormat:  "console",
		Seed:       pipeline.DefaultConfig().Seed,
		Samples:    pipeline.DefaultSampleCount,
		MaxEvals:   gp.DefaultMaxEvaluations,
		DisplayDPI: render.DisplayDPI,
		Timeout:    2 * time.Minute,
	}
	arg.MustParse(&a)

	logger, err := log.SetupLogger(a.LogLevel, a.LogFormat, os.Stderr)
	if err != nil {
		log.GetLogger().Error("invalid logging flags", err)
		os.Exit(2)
	}

	if err := run(a, logger); err != nil {
		logger.Error("server stopped", err)
		os.Exit(1)
	}
}

func run(a args, logger log.Logger) error {
	pcfg := pipeline.DefaultConfig()
	pcfg.Seed = a.Seed
	pcfg.SampleCount = a.Samples
	pcfg.MaxEvaluations = a.MaxEvals

	s, err := server.New(server.Config{
		Pipeline:   pcfg,
		DisplayDPI: a.DisplayDPI,
		Logger:     logger.With(log.ComponentKey, "server"),
	})
	if err != nil {
		return err
	}

	handler := s.Handler()
	if a.Timeout > 0 {
		handler = http.TimeoutHandler(handler, a.Timeout, "computation timed out")
	}
	srv := &http.Server{
		Addr:              a.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", a.Addr, log.RandomSeedKey, a.Seed)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "listen")
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
