package qa

import (
	"context"

	"github.com/poiesic/policygraph/ai"
	"golang.org/x/sync/errgroup"
)

// AskBatch answers questions concurrently, at most the configured
// concurrency at a time. Results are in input order. A question that fails
// still gets a Result, with Error set, so one bad question does not fail the
// batch; only cancellation of ctx does.
func (e *Engine) AskBatch(ctx context.Context, questions []string) ([]*Result, error) {
	results := make([]*Result, len(questions))

	var g errgroup.Group
	g.SetLimit(e.concurrency)
	for i, question := range questions {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			result, err := e.Ask(ctx, question)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				if result == nil {
					result = &Result{Question: question, Answer: NoRelevantClausesMessage, Citations: []ai.Citation{}}
				}
				result.Error = err.Error()
			}
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	e.logger.Debug("batch complete", "questions", len(questions))
	return results, nil
}
