package logging

import "context"

type requestIDKey struct{}

// WithRequestID returns a copy of ctx carrying the request id. Loggers add it
// to every entry logged with that context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
