package player

import "context"

type traceIDKey struct{}

// WithTraceID attaches the request trace id; encounters started under ctx
// carry it into the journal.
func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceIDKey{}, id)
}

func traceIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(traceIDKey{}).(string)
	return id
}
