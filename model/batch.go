// batch.go - Batch-Inferenz ueber einzelne Inference-Aufrufe
package model

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/7blacky7/xinfer/envconfig"
)

// InferBatch ruft m.Inference fuer jede Eingabe auf.
// Die Ausgaben stehen in derselben Reihenfolge wie die Eingaben. Der erste
// Fehler bricht die restlichen Aufrufe ab. Die Parallelitaet wird ueber
// XINFER_BATCH_CONCURRENCY begrenzt (Default 1, also sequentiell).
func InferBatch(ctx context.Context, m Model, inputs []Input) ([]any, error) {
	outputs := make([]any, len(inputs))
	if len(inputs) == 0 {
		return outputs, nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, int(envconfig.BatchConcurrency())))

	for i, in := range inputs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			out, err := m.Inference(ctx, in)
			if err != nil {
				return err
			}
			outputs[i] = out
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outputs, nil
}
