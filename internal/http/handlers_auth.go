package httpx

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	domainauth "github.com/target/principal-auth/internal/domain/auth"
)

// AuthServiceInterface defines the auth service operations exposed over HTTP.
type AuthServiceInterface interface {
	SessionVerifier
	Kind() domainauth.PrincipalKind
	Login(ctx context.Context, creds domainauth.Credentials) (domainauth.IssuedSession, error)
	RevokeSession(ctx context.Context, token string) error
	RegisterPrincipal(ctx context.Context, info domainauth.RegistrationInfo) (string, error)
}

// AuthHandlers provides HTTP handlers for one principal kind.
type AuthHandlers struct {
	Svc    AuthServiceInterface
	Logger *slog.Logger
}

func (h *AuthHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

type signinRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type signinResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type verifyResponse struct {
	PrincipalID string   `json:"principal_id"`
	Username    string   `json:"username"`
	Role        []string `json:"role"`
}

// Signup registers a principal with the identity peer and stores its credential.
// POST /signup.
func (h *AuthHandlers) Signup(w http.ResponseWriter, r *http.Request) {
	var req domainauth.RegistrationInfo
	if !DecodeJSON(w, r, &req) {
		return
	}

	if _, err := h.Svc.RegisterPrincipal(r.Context(), req); err != nil {
		writeServiceError(w, r, h.logger(), err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"message": createdMessage(h.Svc.Kind())})
}

// Signin checks credentials and issues a bearer token.
// POST /signin.
func (h *AuthHandlers) Signin(w http.ResponseWriter, r *http.Request) {
	var req signinRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	issued, err := h.Svc.Login(r.Context(), domainauth.Credentials{Username: req.Username, Password: req.Password})
	if err != nil {
		writeServiceError(w, r, h.logger(), err)
		return
	}

	WriteJSON(w, http.StatusOK, signinResponse{AccessToken: issued.AccessToken, TokenType: issued.TokenType})
}

// Verify reports the principal behind a live bearer token. It runs behind RequireSession.
// POST /token/verify.
func (h *AuthHandlers) Verify(w http.ResponseWriter, r *http.Request) {
	claims, ok := GetClaimsFromContext(r.Context())
	if !ok {
		writeServiceError(w, r, h.logger(), domainauth.ErrSessionRevokedOrUnknown)
		return
	}
	role := claims.Role
	if role == nil {
		role = []string{}
	}
	WriteJSON(w, http.StatusOK, verifyResponse{
		PrincipalID: claims.PrincipalID,
		Username:    claims.Subject,
		Role:        role,
	})
}

// Logout revokes the presented bearer token.
// POST /logout.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	token, ok := bearerToken(r)
	if !ok {
		writeServiceError(w, r, h.logger(), domainauth.ErrTokenMalformed)
		return
	}

	if err := h.Svc.RevokeSession(r.Context(), token); err != nil {
		writeServiceError(w, r, h.logger(), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func createdMessage(kind domainauth.PrincipalKind) string {
	switch kind {
	case domainauth.KindMerchant:
		return "Merchant created successfully"
	case domainauth.KindUser:
		return "User created successfully"
	default:
		return fmt.Sprintf("%s created successfully", kind)
	}
}
