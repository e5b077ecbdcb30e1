// Package compute dispatches a tiled 3-D index space across a fabric.
//
// Dispatch partitions [0, global) into axis-aligned tiles no larger than
// tile, runs one task per tile and returns once every tile has finished.
// Boundary tiles are truncated, never padded, so every index is visited by
// exactly one tile. The body is responsible for combining results across
// tiles safely.
package compute

import (
	"context"
	"iter"
	"math"
	"time"

	gferrors "github.com/vnykmshr/gofabric/pkg/common/errors"
	"github.com/vnykmshr/gofabric/pkg/common/validation"
	"github.com/vnykmshr/gofabric/pkg/fabric"
	"github.com/vnykmshr/gofabric/pkg/metrics"
	"github.com/vnykmshr/gofabric/pkg/scheduling/waitgroup"
)

// Tile is one rectangular sub-range of a dispatch.
type Tile struct {
	// ID is the global index of the tile's first element.
	ID [3]int
	// Size is the tile's extent, clamped to the global range.
	Size [3]int
}

// Body is invoked once per tile.
type Body func(ctx context.Context, id, size [3]int)

// Options configures a dispatch.
type Options struct {
	// Name labels metrics. Defaults to "compute".
	Name string

	// Metrics receives tile counts and dispatch durations. Nil disables
	// metrics.
	Metrics *metrics.Registry
}

func validate(global, tile [3]int) error {
	if err := validation.ValidateExtent("compute", "global", global, true); err != nil {
		return err
	}
	return validation.ValidateExtent("compute", "tile", tile, false)
}

// Count returns the number of tiles Dispatch would run.
func Count(global, tile [3]int) (int, error) {
	if err := validate(global, tile); err != nil {
		return 0, err
	}
	per := tilesPerAxis(global, tile)
	for _, p := range per {
		if p == 0 {
			return 0, nil
		}
	}
	n := 1
	for _, p := range per {
		if n > math.MaxInt/p {
			return 0, gferrors.NewValidationError("compute", "global", global, "tile count overflows int")
		}
		n *= p
	}
	return n, nil
}

// tilesPerAxis rounds global/tile up without overflowing near math.MaxInt.
func tilesPerAxis(global, tile [3]int) [3]int {
	var per [3]int
	for axis := range global {
		per[axis] = global[axis] / tile[axis]
		if global[axis]%tile[axis] != 0 {
			per[axis]++
		}
	}
	return per
}

// Tiles returns the partition of [0, global) in dispatch order, x fastest.
func Tiles(global, tile [3]int) ([]Tile, error) {
	n, err := Count(global, tile)
	if err != nil {
		return nil, err
	}
	tiles := make([]Tile, 0, n)
	for t := range all(global, tile) {
		tiles = append(tiles, t)
	}
	return tiles, nil
}

// all yields tiles without materializing the partition. Inputs must be
// validated.
func all(global, tile [3]int) iter.Seq[Tile] {
	return func(yield func(Tile) bool) {
		per := tilesPerAxis(global, tile)
		for k := 0; k < per[2]; k++ {
			z := k * tile[2]
			for j := 0; j < per[1]; j++ {
				y := j * tile[1]
				for i := 0; i < per[0]; i++ {
					x := i * tile[0]
					t := Tile{
						ID: [3]int{x, y, z},
						Size: [3]int{
							min(tile[0], global[0]-x),
							min(tile[1], global[1]-y),
							min(tile[2], global[2]-z),
						},
					}
					if !yield(t) {
						return
					}
				}
			}
		}
	}
}

// Dispatch runs body once per tile on f and waits for all tiles. Called
// from inside a task of f, the tiles go to the caller's own deque and the
// caller parks while they run.
func Dispatch(ctx context.Context, f *fabric.Fabric, global, tile [3]int, body Body) error {
	return DispatchWithOptions(ctx, f, global, tile, body, Options{})
}

// DispatchWithOptions is like Dispatch with explicit options.
func DispatchWithOptions(ctx context.Context, f *fabric.Fabric, global, tile [3]int, body Body, opts Options) error {
	if f == nil {
		return gferrors.NewValidationError("compute", "fabric", nil, "cannot be nil")
	}
	if body == nil {
		return gferrors.NewValidationError("compute", "body", nil, "cannot be nil")
	}
	n, err := Count(global, tile)
	if err != nil {
		return err
	}
	if n == 0 {
		return nil
	}
	if opts.Name == "" {
		opts.Name = "compute"
	}

	start := time.Now()
	var wg waitgroup.WaitGroup
	wg.Add(n)

	submitted := 0
	for t := range all(global, tile) {
		t := t
		err = f.Go(ctx, func(ctx context.Context) {
			defer wg.DoneContext(ctx)
			body(ctx, t.ID, t.Size)
		})
		if err != nil {
			break
		}
		submitted++
	}

	if submitted < n {
		// Release the barrier for tiles that never ran.
		wg.Add(submitted - n)
	}
	wg.Wait(ctx)

	if opts.Metrics != nil {
		opts.Metrics.ComputeTiles.WithLabelValues(opts.Name).Add(float64(submitted))
		opts.Metrics.ComputeDuration.WithLabelValues(opts.Name).Observe(time.Since(start).Seconds())
	}

	if err != nil {
		return gferrors.NewOperationError("compute", "Dispatch", err).
			WithContext(opts.Name)
	}
	return nil
}
