package main

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/vnykmshr/gofabric/pkg/scheduling/compute"
)

const maxVerifiedIndices = 1 << 26

func newComputeCommand(a *app) *cobra.Command {
	var global, tile []int

	cmd := &cobra.Command{
		Use:   "compute",
		Short: "Run a tiled sum over a 3-D index space and verify coverage",
		RunE: func(cmd *cobra.Command, _ []string) error {
			g, err := extent("global", global)
			if err != nil {
				return err
			}
			t, err := extent("tile", tile)
			if err != nil {
				return err
			}
			return a.runCompute(cmd, g, t)
		},
	}
	cmd.Flags().IntSliceVar(&global, "global", []int{1000, 1, 1}, "global size x,y,z")
	cmd.Flags().IntSliceVar(&tile, "tile", []int{300, 1, 1}, "tile size x,y,z")
	return cmd
}

func extent(name string, v []int) ([3]int, error) {
	var e [3]int
	if len(v) == 0 || len(v) > 3 {
		return e, fmt.Errorf("--%s takes 1 to 3 values, got %d", name, len(v))
	}
	e = [3]int{1, 1, 1}
	copy(e[:], v)
	return e, nil
}

func (a *app) runCompute(cmd *cobra.Command, global, tile [3]int) error {
	total := global[0] * global[1] * global[2]
	if total > maxVerifiedIndices {
		return fmt.Errorf("global size %v has %d indices, limit is %d", global, total, maxVerifiedIndices)
	}
	tiles, err := compute.Count(global, tile)
	if err != nil {
		return err
	}

	f, err := a.newFabric()
	if err != nil {
		return err
	}
	defer f.Shutdown()

	visits := make([]atomic.Uint32, total)
	var sum atomic.Int64
	start := time.Now()

	err = compute.DispatchWithOptions(context.Background(), f, global, tile,
		func(_ context.Context, id, size [3]int) {
			var local int64
			for z := id[2]; z < id[2]+size[2]; z++ {
				for y := id[1]; y < id[1]+size[1]; y++ {
					for x := id[0]; x < id[0]+size[0]; x++ {
						i := (z*global[1]+y)*global[0] + x
						visits[i].Add(1)
						local += int64(i)
					}
				}
			}
			sum.Add(local)
		},
		compute.Options{Name: a.cfg.Fabric.Name, Metrics: a.metrics},
	)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	covered := true
	for i := range visits {
		if visits[i].Load() != 1 {
			covered = false
			break
		}
	}
	want := int64(total) * int64(total-1) / 2
	ok := covered && sum.Load() == want

	rows := []row{
		{"global", global},
		{"tile", tile},
		{"tiles", tiles},
		{"sum", sum.Load()},
		{"expected", want},
		{"elapsed", elapsed.Round(time.Microsecond)},
	}
	printSummary(cmd.OutOrStdout(), "compute", ok, append(rows, statsRows(f.Stats())...))
	if !ok {
		return fmt.Errorf("compute verification failed")
	}
	return nil
}
