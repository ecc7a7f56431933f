package auth

import "context"

// Session identifies the caller of a processing operation. The zero value is
// an anonymous caller.
type Session struct {
	UserID string
}

var Anonymous = Session{}

func NewSession(userID string) Session {
	return Session{UserID: userID}
}

func (s Session) Authenticated() bool {
	return s.UserID != ""
}

// Owner returns a pointer suitable for nullable owner columns.
func (s Session) Owner() *string {
	if !s.Authenticated() {
		return nil
	}
	id := s.UserID
	return &id
}

type sessionKey struct{}

func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// FromContext returns Anonymous when no session was attached.
func FromContext(ctx context.Context) Session {
	if s, ok := ctx.Value(sessionKey{}).(Session); ok {
		return s
	}
	return Anonymous
}
