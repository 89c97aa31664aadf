// Package middleware wraps result caches with extra behavior.
package middleware

import "github.com/aretw0/arbor/pkg/ports"

// Middleware allows wrapping a ResultCache to add behavior.
type Middleware func(ports.ResultCache) ports.ResultCache

// Chain applies mws so the first one is the outermost wrapper.
func Chain(next ports.ResultCache, mws ...Middleware) ports.ResultCache {
	for i := len(mws) - 1; i >= 0; i-- {
		next = mws[i](next)
	}
	return next
}
