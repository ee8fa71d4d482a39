package http

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"pfm/internal/auth"
	"pfm/internal/core"
)

// errorResponse is the JSON envelope for every error the API returns.
type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	var resp errorResponse
	resp.Error.Code = code
	resp.Error.Message = message
	writeJSON(w, status, resp)
}

// writeDomainError maps domain sentinels onto HTTP statuses and stable
// error codes. Unrecognized errors become opaque 500s so internals never
// leak to clients.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrEmptyCredential):
		writeError(w, http.StatusUnprocessableEntity, "empty_credential", err.Error())
	case errors.Is(err, auth.ErrWeakPassword):
		writeError(w, http.StatusUnprocessableEntity, "weak_password", err.Error())
	case errors.Is(err, auth.ErrDuplicateUsername):
		writeError(w, http.StatusConflict, "duplicate_username", err.Error())
	case errors.Is(err, auth.ErrAccountLocked):
		writeError(w, http.StatusLocked, "account_locked", err.Error())
	case errors.Is(err, auth.ErrInvalidCredential):
		writeError(w, http.StatusUnauthorized, "invalid_credential", err.Error())
	case errors.Is(err, core.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "record not found")
	case errors.Is(err, core.ErrConflict):
		writeError(w, http.StatusConflict, "conflict", "record already exists")
	case errors.Is(err, core.ErrStoreUnavailable):
		writeError(w, http.StatusServiceUnavailable, "store_unavailable", "record store unavailable")
	case errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidCategory),
		errors.Is(err, core.ErrZeroDate),
		errors.Is(err, core.ErrEmptySource):
		writeError(w, http.StatusUnprocessableEntity, "invalid_input", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

// clientIP extracts the client address, honoring proxy headers.
func clientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		if idx := strings.IndexByte(ip, ','); idx >= 0 {
			return strings.TrimSpace(ip[:idx])
		}
		return ip
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	return r.RemoteAddr
}

// generateRequestID creates a unique request ID for tracing.
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to timestamp if random fails
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

// generateSessionToken returns an opaque 256-bit token.
func generateSessionToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// parsePeriod extracts an optional year/month pair from query parameters.
// A zero Period means "current month".
func parsePeriod(r *http.Request) (core.Period, error) {
	yearStr := strings.TrimSpace(r.URL.Query().Get("year"))
	monthStr := strings.TrimSpace(r.URL.Query().Get("month"))
	if yearStr == "" && monthStr == "" {
		return core.Period{}, nil
	}
	if yearStr == "" || monthStr == "" {
		return core.Period{}, fmt.Errorf("year and month must be provided together")
	}

	var year, month int
	if _, err := fmt.Sscanf(yearStr, "%d", &year); err != nil {
		return core.Period{}, fmt.Errorf("invalid year %q", yearStr)
	}
	if _, err := fmt.Sscanf(monthStr, "%d", &month); err != nil {
		return core.Period{}, fmt.Errorf("invalid month %q", monthStr)
	}

	period := core.Period{Year: year, Month: time.Month(month)}
	if err := period.Validate(); err != nil {
		return core.Period{}, err
	}
	return period, nil
}
