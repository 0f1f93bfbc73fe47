package worker

import (
	"context"

	audit "pixelgenesis/pkg/platform/audit"
)

// Worker drains an event channel into a sink. It returns when the channel is
// closed or ctx is cancelled. Sink errors are dropped: audit is best-effort and
// must never stall the publisher.
type Worker struct {
	sink  audit.Sink
	inbox <-chan audit.Event
}

func NewWorker(sink audit.Sink, inbox <-chan audit.Event) *Worker {
	return &Worker{sink: sink, inbox: inbox}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.inbox:
			if !ok {
				return nil
			}
			_ = w.sink.Append(ctx, event)
		}
	}
}
