package synthesis

import "context"

// Observer receives every generation result after it is built. Observers are
// called synchronously, in registration order, on the generating goroutine;
// implementations that do I/O should hand off to their own workers.
type Observer interface {
	ObserveGeneration(ctx context.Context, res *Result)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ctx context.Context, res *Result)

// ObserveGeneration calls f(ctx, res).
func (f ObserverFunc) ObserveGeneration(ctx context.Context, res *Result) {
	f(ctx, res)
}
