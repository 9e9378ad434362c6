package router

import "net/http"

type RouteRegistrar interface {
	RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler)
}

// New builds the service mux. metrics is mounted at /metrics without auth
// when non-nil; nil registrars are skipped.
func New(
	authMiddleware func(http.Handler) http.Handler,
	metrics http.Handler,
	registrars ...RouteRegistrar,
) *http.ServeMux {
	mux := http.NewServeMux()

	if metrics != nil {
		mux.Handle("GET /metrics", metrics)
	}

	for _, registrar := range registrars {
		if registrar == nil {
			continue
		}
		registrar.RegisterRoutes(mux, authMiddleware)
	}

	return mux
}
