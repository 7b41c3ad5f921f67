package aws

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	apperrors "github.com/cloudscope/cloudscope/internal/errors"
	"github.com/cloudscope/cloudscope/telemetry"
	"github.com/cloudscope/cloudscope/types"
)

// Aggregate runs every describer and assembles the full collection.
// A failing describer degrades its label to an empty list, it never
// aborts the other describers.
func (p *Provider) Aggregate(ctx context.Context) (types.ResourceCollection, error) {
	return p.run(ctx, p.describers())
}

// AggregateCategory runs only the describers whose label belongs to
// the given category view.
func (p *Provider) AggregateCategory(ctx context.Context, category types.Category) (types.ResourceCollection, error) {
	labels := types.CategoryLabels(category)
	if labels == nil {
		return nil, apperrors.Newf(apperrors.CodeValidation, "unknown category %q", category)
	}

	wanted := make(map[string]struct{}, len(labels))
	for _, label := range labels {
		wanted[label] = struct{}{}
	}

	var selected []describer
	for _, d := range p.describers() {
		if _, ok := wanted[d.label]; ok {
			selected = append(selected, d)
		}
	}
	return p.run(ctx, selected)
}

func (p *Provider) run(ctx context.Context, describers []describer) (types.ResourceCollection, error) {
	start := time.Now()
	collection := make(types.ResourceCollection, len(describers))

	var mu sync.Mutex
	var failed int64

	g := new(errgroup.Group)
	g.SetLimit(p.workers)

	for _, d := range describers {
		g.Go(func() error {
			records, err := d.fn(ctx)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				p.log.LogScanFailure(ctx, d.label, err)
				failed++
				collection[d.label] = []types.ResourceRecord{}
				return nil
			}
			if records == nil {
				records = []types.ResourceRecord{}
			}
			collection[d.label] = records
			return nil
		})
	}
	_ = g.Wait()

	// A canceled aggregation is not a partial result, callers must not
	// cache what came back.
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeProvider, "aggregation interrupted")
	}

	telemetry.RecordScan(ctx, int64(collection.Total()), failed, time.Since(start))
	return collection, nil
}
