package middleware

import "github.com/aretw0/plotforge/pkg/ports"

// Middleware allows wrapping a ContentStore to add behavior.
type Middleware func(ports.ContentStore) ports.ContentStore

// Chain applies middlewares so that the first one is the outermost.
func Chain(store ports.ContentStore, mws ...Middleware) ports.ContentStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}
