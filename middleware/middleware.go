// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/danielhkuo/movienight/apperr"
	"github.com/danielhkuo/movienight/auth"
	"github.com/danielhkuo/movienight/models"
)

const (
	// VoterCookie holds the voter token in browsers.
	VoterCookie = "movienight_voter"
	// VoterTokenHeader carries the voter token for non-browser clients.
	VoterTokenHeader = "X-Voter-Token"
	// AdminSecretHeader carries the admin secret.
	AdminSecretHeader = "X-Admin-Secret"

	maxBodyBytes = 1 << 20
)

type contextKey string

const voterKey contextKey = "voter"

// WithLogging wraps a handler with request logging
func WithLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		// Call the next handler
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		slog.Info("request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", chimw.GetReqID(r.Context()),
		)
	})
}

// JSONResponse writes a JSON response
func JSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	err := json.NewEncoder(w).Encode(data)
	if err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// ErrorResponse writes a JSON error response
func ErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	JSONResponse(w, statusCode, models.ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
	})
}

// WriteError maps err to a status and writes it. Errors without an apperr
// kind are logged and reported as a generic 500.
func WriteError(w http.ResponseWriter, err error) {
	e, ok := apperr.As(err)
	if !ok || e.Kind == apperr.KindInternal {
		slog.Error("internal error", "error", err)
		JSONResponse(w, http.StatusInternalServerError, models.ErrorResponse{
			Error:   http.StatusText(http.StatusInternalServerError),
			Code:    string(apperr.CodeInternal),
			Message: "Something went wrong",
		})
		return
	}
	if e.Kind == apperr.KindExternal {
		slog.Warn("external failure", "error", err)
	}

	status := StatusFor(e.Kind)
	JSONResponse(w, status, models.ErrorResponse{
		Error:   http.StatusText(status),
		Code:    string(e.Code),
		Message: e.Message,
		Details: e.Details,
	})
}

// StatusFor is the HTTP status of an error kind.
func StatusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ParseJSONBody parses the request body into the given struct. An empty
// body leaves v untouched.
func ParseJSONBody(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return apperr.Validation("Invalid JSON body").Wrap(err)
	}
	return nil
}

// CORS allows the configured frontend origins to call the API with credentials.
func CORS(origins []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Authorization", VoterTokenHeader, AdminSecretHeader},
		AllowCredentials: true,
		MaxAge:           300,
	})
}

// RequireAdmin rejects requests without the admin secret.
func RequireAdmin(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := auth.ValidateAdminSecret(r.Header.Get(AdminSecretHeader), secret); err != nil {
				WriteError(w, apperr.Unauthorized("Invalid admin secret"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// VoterIdentity resolves the voter token, if any, and stores the voter id in
// the request context. Requests without a valid token pass through
// anonymously.
func VoterIdentity(tokens *auth.TokenIssuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := VoterToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			claims, err := tokens.Parse(token)
			if err != nil {
				slog.Debug("ignoring voter token", "error", err, "request_id", chimw.GetReqID(r.Context()))
				next.ServeHTTP(w, r)
				return
			}
			ctx := context.WithValue(r.Context(), voterKey, claims.VoterID())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// VoterToken reads the token from the cookie, X-Voter-Token, or a bearer
// Authorization header, in that order.
func VoterToken(r *http.Request) string {
	if c, err := r.Cookie(VoterCookie); err == nil && c.Value != "" {
		return c.Value
	}
	if t := strings.TrimSpace(r.Header.Get(VoterTokenHeader)); t != "" {
		return t
	}
	if h := r.Header.Get("Authorization"); len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// VoterID returns the voter resolved by VoterIdentity, or "".
func VoterID(ctx context.Context) string {
	id, _ := ctx.Value(voterKey).(string)
	return id
}

// WithVoterID returns ctx carrying voterID, as VoterIdentity would.
func WithVoterID(ctx context.Context, voterID string) context.Context {
	return context.WithValue(ctx, voterKey, voterID)
}
