package auth

import "context"

type contextKey struct{}

// WithSession installs s as the session of the request
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the installed session. Handlers reached without the session
// middleware are a wiring error, so it panics instead of returning nil.
func FromContext(ctx context.Context) *Session {
	s, ok := SessionFrom(ctx)
	if !ok {
		panic("auth: FromContext called without a session in the context")
	}
	return s
}

func SessionFrom(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(contextKey{}).(*Session)
	return s, ok && s != nil
}
