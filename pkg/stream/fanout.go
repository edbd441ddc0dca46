package stream

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/agentrelay/agentrelay/pkg/schema"
)

// Sink consumes one response from a fanned-out stream.
type Sink func(ctx context.Context, resp schema.AgentResponse) error

// Fanout forwards every response read from in to each sink concurrently,
// preserving per-sink ordering, until in closes, the context ends, or a sink
// fails. The first sink error cancels the remaining sinks and is returned.
func Fanout(ctx context.Context, in <-chan schema.AgentResponse, sinks ...Sink) error {
	if len(sinks) == 0 {
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)

	queues := make([]chan schema.AgentResponse, len(sinks))
	for i := range sinks {
		queues[i] = make(chan schema.AgentResponse, DefaultBuffer)
	}

	g.Go(func() error {
		defer func() {
			for _, q := range queues {
				close(q)
			}
		}()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case resp, ok := <-in:
				if !ok {
					return nil
				}
				for _, q := range queues {
					select {
					case q <- resp:
					case <-ctx.Done():
						return ctx.Err()
					}
				}
			}
		}
	})

	for i := range sinks {
		sink := sinks[i]
		queue := queues[i]
		g.Go(func() error {
			for resp := range queue {
				if err := sink(ctx, resp); err != nil {
					return err
				}
			}
			return nil
		})
	}

	return g.Wait()
}
