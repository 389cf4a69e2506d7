package fanout

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"

	"github.com/shohag/nrfcloud"
)

// MessageLister is the part of *nrfcloud.Client the pool needs.
type MessageLister interface {
	ListMessages(ctx context.Context, params *nrfcloud.ListMessagesParams) (*nrfcloud.ListMessagesResponse, error)
}

type Result struct {
	DeviceID string
	Page     *nrfcloud.ListMessagesResponse
	Err      error
}

type Pool struct {
	lister  MessageLister
	workers int
	log     zerolog.Logger
}

func NewPool(lister MessageLister, workers int, log zerolog.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{
		lister:  lister,
		workers: workers,
		log:     log,
	}
}

// ListByDevice fetches one page per device, at most p.workers at a time.
// Results come back in the order of deviceIDs; a failure for one device does
// not stop the others.
func (p *Pool) ListByDevice(ctx context.Context, base nrfcloud.ListMessagesParams, deviceIDs []string) []Result {
	results := make([]Result, len(deviceIDs))

	wp := pool.New().WithMaxGoroutines(p.workers)
	for i, id := range deviceIDs {
		i, id := i, id
		wp.Go(func() {
			start := time.Now()
			params := base
			params.DeviceID = nrfcloud.String(id)

			page, err := p.lister.ListMessages(ctx, &params)
			results[i] = Result{DeviceID: id, Page: page, Err: err}

			if err != nil {
				p.log.Warn().Err(err).Str("device_id", id).Msg("list messages failed")
				return
			}
			p.log.Debug().
				Str("device_id", id).
				Int("items", len(page.Items)).
				Dur("duration", time.Since(start)).
				Msg("listed messages")
		})
	}
	wp.Wait()

	return results
}
