package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	domainauth "github.com/target/principal-auth/internal/domain/auth"
	apperrors "github.com/target/principal-auth/internal/errors"
)

// Client-facing messages. Unknown users and wrong passwords share one message.
var (
	errInvalidLogin   = errors.New("invalid username or password")
	errInvalidToken   = errors.New("invalid token")
	errAlreadyExists  = errors.New("principal already registered")
	errRegistration   = errors.New("registration failed")
	errPeerDown       = errors.New("identity service unavailable")
	errStoreDown      = errors.New("service temporarily unavailable")
	errInternalServer = errors.New("internal server error")
)

// errorResponse maps a service error to the status, code and message sent to clients.
// Details of the underlying error never leave the process.
func errorResponse(err error) ErrorParams {
	switch {
	case apperrors.IsValidation(err):
		var appErr *apperrors.AppError
		errors.As(err, &appErr)
		return ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "validation_failed",
			Err:     errors.New(appErr.Message),
			Field:   appErr.Field,
		}
	case domainauth.IsAuthenticationFailure(err):
		return ErrorParams{Code: http.StatusUnauthorized, ErrCode: "invalid_credentials", Err: errInvalidLogin}
	case domainauth.IsTokenFailure(err):
		return ErrorParams{Code: http.StatusUnauthorized, ErrCode: "invalid_token", Err: errInvalidToken}
	case errors.Is(err, domainauth.ErrPrincipalAlreadyRegistered):
		return ErrorParams{Code: http.StatusConflict, ErrCode: "already_registered", Err: errAlreadyExists}
	case errors.Is(err, domainauth.ErrPeerUnavailable):
		return ErrorParams{Code: http.StatusServiceUnavailable, ErrCode: "peer_unavailable", Err: errPeerDown}
	case errors.Is(err, domainauth.ErrRegistrationFailed):
		return ErrorParams{Code: http.StatusConflict, ErrCode: "registration_failed", Err: errRegistration}
	case apperrors.IsUnavailable(err):
		return ErrorParams{Code: http.StatusServiceUnavailable, ErrCode: "store_unavailable", Err: errStoreDown}
	case errors.Is(err, context.DeadlineExceeded):
		return ErrorParams{Code: http.StatusGatewayTimeout, ErrCode: "timeout", Err: errors.New("request timed out")}
	default:
		return ErrorParams{Code: http.StatusInternalServerError, ErrCode: "internal_error", Err: errInternalServer}
	}
}

// writeServiceError renders err and logs anything that is not an expected refusal.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	p := errorResponse(err)
	if p.Code >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "request failed",
			"request_id", RequestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"status", p.Code,
			"error", err,
		)
	}
	WriteError(w, p)
}
