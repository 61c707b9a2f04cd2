package httpx

import (
	"io"
	"net/http"
)

const (
	healthResponse       = `{"status":"ok"}`
	legacyHealthResponse = `{"health":"Good"}`
)

// healthHandler answers liveness checks without touching any dependency.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeStatic(w, r, healthResponse)
}

// legacyHealthHandler serves GET /health with the body existing callers expect.
func legacyHealthHandler(w http.ResponseWriter, r *http.Request) {
	writeStatic(w, r, legacyHealthResponse)
}

func writeStatic(w http.ResponseWriter, r *http.Request, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := io.WriteString(w, body); err != nil {
		// Nothing more to do if the client connection is gone.
		return
	}
}
