package httpx

import (
	"log/slog"
	"net/http"
	"strings"
)

// RouterServices holds the services needed by the HTTP router.
type RouterServices struct {
	Users     AuthServiceInterface
	Merchants AuthServiceInterface
	// MerchantPrefix mounts the merchant routes, e.g. "/merchant".
	MerchantPrefix string
	// CORSAllowedOrigins enables CORS for the listed origins; empty disables it.
	CORSAllowedOrigins []string
	// Readiness checks served on GET /readyz. Nil leaves the route unregistered.
	Readiness map[string]CheckFunc
	Logger    *slog.Logger
}

// NewRouter creates and configures the HTTP router.
func NewRouter(services RouterServices) http.Handler {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()

	if services.Users != nil {
		registerAuthRoutes(mux, "", &AuthHandlers{Svc: services.Users, Logger: logger})
	}
	if services.Merchants != nil {
		prefix := "/" + strings.Trim(services.MerchantPrefix, "/")
		if prefix == "/" {
			prefix = "/merchant"
		}
		registerAuthRoutes(mux, prefix, &AuthHandlers{Svc: services.Merchants, Logger: logger})
	}

	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("GET /health", http.HandlerFunc(legacyHealthHandler))
	if services.Readiness != nil {
		ready := &ReadyHandlers{Checks: services.Readiness, Logger: logger}
		mux.HandleFunc("GET /readyz", ready.Ready)
	}

	var handler http.Handler = mux
	if len(services.CORSAllowedOrigins) > 0 {
		handler = CORS(services.CORSAllowedOrigins)(handler)
	}
	return RequestID(Recover(logger)(Logging(logger)(handler)))
}

func registerAuthRoutes(mux *http.ServeMux, prefix string, h *AuthHandlers) {
	mux.HandleFunc("POST "+prefix+"/signup", h.Signup)
	mux.HandleFunc("POST "+prefix+"/signin", h.Signin)
	mux.Handle("POST "+prefix+"/token/verify", RequireSession(h.Svc, h.logger())(http.HandlerFunc(h.Verify)))
	mux.HandleFunc("POST "+prefix+"/logout", h.Logout)
}
