package embedding

import (
	"context"

	"golang.org/x/sync/errgroup"

	"esgrag/src/core/chunking"
)

// batch is a contiguous slice of the input with its starting position, so
// results land back at their original global offsets.
type batch struct {
	offset int
	texts  []string
}

// partition splits already-truncated texts into batches honoring both the
// count limit and the estimated-token budget. A text that would push
// either limit over the edge starts a new batch; an oversized text facing
// an empty batch is submitted alone.
func (c *Client) partition(texts []string) []batch {
	var batches []batch
	start := 0
	tokens := 0

	for i, text := range texts {
		t := chunking.EstimateTokens(text)
		count := i - start
		if count > 0 && (count >= c.maxBatchTexts || tokens+t > c.maxBatchTokens) {
			batches = append(batches, batch{offset: start, texts: texts[start:i]})
			start = i
			tokens = 0
		}
		tokens += t
	}
	if start < len(texts) {
		batches = append(batches, batch{offset: start, texts: texts[start:]})
	}
	return batches
}

// EmbedMany returns one vector per input text, in input order, regardless
// of internal batching or the order batches complete in. If any batch
// permanently fails the whole call fails; no partial vectors are exposed.
func (c *Client) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	truncated := make([]string, len(texts))
	for i, text := range texts {
		truncated[i] = c.truncate(text)
	}

	vectors := make([][]float32, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for _, b := range c.partition(truncated) {
		b := b
		g.Go(func() error {
			batchVectors, err := c.embedBatchWithRetry(gctx, b.texts)
			if err != nil {
				return err
			}
			// Each batch owns a disjoint range of the result slice, so
			// no locking is needed here.
			copy(vectors[b.offset:], batchVectors)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}
