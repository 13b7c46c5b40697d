package volume

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"lightbox/internal/logging"
	"lightbox/internal/metrics"
	"lightbox/internal/study"
)

// FetchDecodeFunc loads one instance and returns its decoded samples.
type FetchDecodeFunc func(ctx context.Context, ref study.InstanceRef) (*Slice, error)

// Assembler packs instance stacks into voxel grids.
type Assembler struct {
	fetch   FetchDecodeFunc
	workers int
	logger  *slog.Logger
}

// NewAssembler returns an assembler running at most workers concurrent
// fetches. Worker counts below one are raised to one.
func NewAssembler(fetch FetchDecodeFunc, workers int, logger *slog.Logger) *Assembler {
	if workers < 1 {
		workers = 1
	}
	return &Assembler{
		fetch:   fetch,
		workers: workers,
		logger:  logging.NewComponentLogger(logger, "volume"),
	}
}

// Build fetches every instance in the catalog and packs the samples into
// one grid. The grid's width and height come from the first catalog
// position that decoded; slices carrying more samples than one grid plane
// are truncated, and failed slices stay zeroed with Populated false.
// Build fails only when the catalog is empty, nothing decoded, or ctx
// ended early.
func (a *Assembler) Build(ctx context.Context, catalog *study.InstanceCatalog) (*Grid, error) {
	depth := catalog.Len()
	if depth == 0 {
		return nil, ErrNoInstances
	}

	buildStart := time.Now()
	slices := make([]*Slice, depth)

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(a.workers)
	for i := 0; i < depth; i++ {
		ref, _ := catalog.At(i)
		position := i
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			slice, err := a.fetch(groupCtx, ref)
			if err != nil {
				if ctxErr := groupCtx.Err(); ctxErr != nil {
					return ctxErr
				}
				// Unreadable slices are tolerated; the plane stays zeroed.
				a.logger.Debug("slice unreadable",
					logging.String(logging.FieldSOPUID, ref.SOPUID),
					logging.Int(logging.FieldIndex, position),
					logging.Error(err))
				return nil
			}
			slices[position] = slice
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, fmt.Errorf("assemble volume: %w", err)
	}

	grid, err := pack(slices)
	if err != nil {
		return nil, err
	}

	metrics.VolumeBuildsTotal.Inc()
	metrics.VolumeBuildSeconds.Observe(time.Since(buildStart).Seconds())
	a.logger.Info("volume assembled",
		logging.Int("width", grid.Width),
		logging.Int("height", grid.Height),
		logging.Int("depth", grid.Depth),
		logging.Float64("coverage", grid.Coverage()),
		logging.Duration("duration", time.Since(buildStart)))
	return grid, nil
}

// pack lays the fetched slices into a fresh grid in catalog order.
func pack(slices []*Slice) (*Grid, error) {
	width, height := 0, 0
	for _, slice := range slices {
		if slice != nil {
			width, height = slice.Width, slice.Height
			break
		}
	}
	if width == 0 || height == 0 {
		return nil, ErrNoReadableInstances
	}

	depth := len(slices)
	plane := width * height
	grid := &Grid{
		Width:     width,
		Height:    height,
		Depth:     depth,
		Voxels:    make([]uint16, plane*depth),
		Populated: make([]bool, depth),
	}
	for z, slice := range slices {
		if slice == nil {
			continue
		}
		copy(grid.Voxels[z*plane:(z+1)*plane], slice.Samples)
		grid.Populated[z] = true
	}
	return grid, nil
}
