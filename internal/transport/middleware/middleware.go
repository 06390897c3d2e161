// Package middleware holds the HTTP middleware shared by the RPC endpoints
// and the live chat room streams.
package middleware

import "net/http"

// Middleware wraps an http.Handler. Values plug straight into chi's Use.
type Middleware = func(http.Handler) http.Handler
