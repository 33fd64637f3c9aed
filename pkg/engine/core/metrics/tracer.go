package metrics

import "context"

// Tracer is the distributed tracing port.
type Tracer interface {
	// StartCommandSpan starts a span around one dispatch. The returned function ends it.
	StartCommandSpan(ctx context.Context, commandName string) (context.Context, func())

	// StartJobSpan starts a span around one job attempt.
	StartJobSpan(ctx context.Context, handlerType string, batchID string, attempt int) (context.Context, func())

	// RecordError records err on the span carried by ctx.
	RecordError(ctx context.Context, module string, err error)

	// RecordEvent adds an event to the span carried by ctx.
	RecordEvent(ctx context.Context, name string, attributes map[string]interface{})
}
