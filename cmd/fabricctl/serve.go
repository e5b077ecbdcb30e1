package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vnykmshr/gofabric/pkg/fabric"
	"github.com/vnykmshr/gofabric/pkg/ratelimit/concurrency"
	"github.com/vnykmshr/gofabric/pkg/scheduling/compute"
	"github.com/vnykmshr/gofabric/pkg/scheduling/timer"
)

type serveOptions struct {
	duration time.Duration
	interval time.Duration
	cron     string
}

func newServeCommand(a *app) *cobra.Command {
	opts := serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Expose Prometheus metrics while running a synthetic workload",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if opts.duration > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, opts.duration)
				defer cancel()
			}
			return a.runServe(ctx, cmd, opts)
		},
	}
	cmd.Flags().DurationVar(&opts.duration, "duration", 0, "stop after this long (0 = until interrupted)")
	cmd.Flags().DurationVar(&opts.interval, "interval", 500*time.Millisecond, "interval between synthetic dispatches")
	cmd.Flags().StringVar(&opts.cron, "cron", "*/10 * * * * *", "cron schedule of the yield-heavy job (with seconds)")
	return cmd
}

func (a *app) runServe(ctx context.Context, cmd *cobra.Command, opts serveOptions) error {
	f, err := a.newFabric()
	if err != nil {
		return err
	}
	defer f.Shutdown()

	sched, err := timer.New(timer.Config{
		Name:    a.cfg.Fabric.Name,
		Fabric:  f,
		Logger:  a.logger,
		Metrics: a.metrics,
	})
	if err != nil {
		return err
	}

	// One dispatch at a time; ticks that find it busy are skipped.
	inflight, err := concurrency.NewWithConfigSafe(concurrency.Config{Capacity: 1, Name: "serve-dispatch", Metrics: a.metrics})
	if err != nil {
		return err
	}

	var dispatches, skipped atomic.Int64
	_, err = sched.ScheduleRepeating("dispatch", fabric.TaskFunc(func(ctx context.Context) error {
		if !inflight.Acquire() {
			skipped.Add(1)
			return nil
		}
		defer inflight.Release()

		err := compute.DispatchWithOptions(ctx, f, [3]int{256, 256, 1}, [3]int{32, 32, 1},
			func(context.Context, [3]int, [3]int) {},
			compute.Options{Name: "serve", Metrics: a.metrics})
		if err == nil {
			dispatches.Add(1)
		}
		return err
	}), opts.interval)
	if err != nil {
		return err
	}
	_, err = sched.ScheduleCron("yielder", opts.cron, timer.RetryTask{
		Task: fabric.TaskFunc(func(ctx context.Context) error {
			for i := 0; i < 100; i++ {
				fabric.Yield(ctx)
			}
			return nil
		}),
		MaxRetries: 3,
	})
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", a.cfg.Metrics.Address)
	if err != nil {
		return fmt.Errorf("listen %s: %w", a.cfg.Metrics.Address, err)
	}
	mux := http.NewServeMux()
	mux.Handle(a.cfg.Metrics.Path, promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(ln)
	}()

	titleColor.Fprintf(cmd.OutOrStdout(), "serving metrics on http://%s%s\n", ln.Addr(), a.cfg.Metrics.Path)
	a.logger.Info("metrics endpoint up", zap.String("addr", ln.Addr().String()))

	if err := sched.Start(); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		sched.Stop()
		return fmt.Errorf("metrics server: %w", err)
	}

	sched.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown metrics server: %w", err)
	}
	if err := <-serveErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	printSummary(cmd.OutOrStdout(), "serve", true, append([]row{
		{"dispatches", dispatches.Load()},
		{"skipped", skipped.Load()},
	}, statsRows(f.Stats())...))
	return nil
}
