package backend

import (
	"context"
	"net/http"
)

type credentialsKey struct{}

// Credentials are the caller's session tokens relayed to the backend.
type Credentials struct {
	Cookies       []*http.Cookie
	Authorization string
}

// WithCredentials stores creds on ctx for every backend call made with it.
func WithCredentials(ctx context.Context, creds Credentials) context.Context {
	return context.WithValue(ctx, credentialsKey{}, creds)
}

// CredentialsFromContext returns the relayed credentials, if any.
func CredentialsFromContext(ctx context.Context) (Credentials, bool) {
	creds, ok := ctx.Value(credentialsKey{}).(Credentials)
	return creds, ok
}

// ForwardCredentials captures the inbound request's cookies and
// Authorization header so backend calls run as the same user.
func ForwardCredentials(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		creds := Credentials{
			Cookies:       r.Cookies(),
			Authorization: r.Header.Get("Authorization"),
		}
		next.ServeHTTP(w, r.WithContext(WithCredentials(r.Context(), creds)))
	})
}
