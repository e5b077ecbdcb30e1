package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vnykmshr/gofabric/pkg/ratelimit/bucket"
	"github.com/vnykmshr/gofabric/pkg/scheduling/waitgroup"
	"github.com/vnykmshr/gofabric/pkg/streaming/channel"
)

type pipelineOptions struct {
	items   int
	buffer  int
	workers int
	rate    float64
}

func newPipelineCommand(a *app) *cobra.Command {
	opts := pipelineOptions{}

	cmd := &cobra.Command{
		Use:   "pipeline",
		Short: "Run a producer, square and sum pipeline over channels",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.items < 0 || opts.buffer < 0 || opts.workers < 1 || opts.rate < 0 {
				return fmt.Errorf("--items, --buffer and --rate must be >= 0 and --stage-workers >= 1")
			}
			return a.runPipeline(cmd, opts)
		},
	}
	cmd.Flags().IntVar(&opts.items, "items", 10000, "number of values produced")
	cmd.Flags().IntVar(&opts.buffer, "buffer", 16, "channel capacity, 0 for rendezvous")
	cmd.Flags().IntVar(&opts.workers, "stage-workers", 4, "tasks running the square stage")
	cmd.Flags().Float64Var(&opts.rate, "rate", 0, "values per second admitted to the square stage (0 = unlimited)")
	return cmd
}

// runPipeline wires producer -> square stage -> consumer. Every stage is a
// fabric task; only the final result crosses back to the command.
func (a *app) runPipeline(cmd *cobra.Command, opts pipelineOptions) error {
	f, err := a.newFabric()
	if err != nil {
		return err
	}
	defer f.Shutdown()

	numbers := channel.NewWithConfig[int64](channel.Config{Capacity: opts.buffer, Name: "numbers", Metrics: a.metrics})
	squares := channel.NewWithConfig[int64](channel.Config{Capacity: opts.buffer, Name: "squares", Metrics: a.metrics})
	result := channel.New[int64](1)

	var limiter *bucket.Limiter
	if opts.rate > 0 {
		limiter, err = bucket.NewWithConfigSafe(bucket.Config{
			Rate:          bucket.Limit(opts.rate),
			Burst:         max(1, opts.workers),
			InitialTokens: -1,
			Name:          "pipeline",
			Metrics:       a.metrics,
		})
		if err != nil {
			return err
		}
	}
	start := time.Now()

	err = f.Go(context.Background(), func(ctx context.Context) {
		for i := 1; i <= opts.items; i++ {
			numbers.Send(ctx, int64(i))
		}
		_ = numbers.Close()
	})
	if err != nil {
		return err
	}

	err = f.Go(context.Background(), func(ctx context.Context) {
		var stage waitgroup.WaitGroup
		for w := 0; w < opts.workers; w++ {
			if err := stage.Go(ctx, f, square(numbers, squares, limiter)); err != nil {
				zap.L().Error("stage submit failed", zap.Error(err))
			}
		}
		stage.Wait(ctx)
		_ = squares.Close()
	})
	if err != nil {
		return err
	}

	err = f.Go(context.Background(), func(ctx context.Context) {
		var sum int64
		for v := range squares.All(ctx) {
			sum += v
		}
		result.Send(ctx, sum)
	})
	if err != nil {
		return err
	}

	sum, status := result.RecvTimeout(context.Background(), time.Minute)
	if status != channel.OK {
		return fmt.Errorf("pipeline did not finish: %s", status)
	}

	n := int64(opts.items)
	want := n * (n + 1) * (2*n + 1) / 6
	rows := []row{
		{"items", opts.items},
		{"buffer", opts.buffer},
		{"sum", sum},
		{"expected", want},
		{"elapsed", time.Since(start).Round(time.Microsecond)},
		{"blocked", numbers.Stats().BlockedSends + squares.Stats().BlockedSends},
	}
	printSummary(cmd.OutOrStdout(), "pipeline", sum == want, append(rows, statsRows(f.Stats())...))
	if sum != want {
		return fmt.Errorf("pipeline verification failed")
	}
	return nil
}

func square(in, out *channel.Channel[int64], limiter *bucket.Limiter) func(ctx context.Context) {
	return func(ctx context.Context) {
		for v := range in.All(ctx) {
			if limiter != nil {
				if err := limiter.Wait(ctx); err != nil {
					zap.L().Warn("rate limiter wait failed", zap.Error(err))
				}
			}
			out.Send(ctx, v*v)
		}
	}
}

