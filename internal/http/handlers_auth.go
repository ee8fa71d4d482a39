package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"pfm/internal/core"
	"pfm/internal/log"
)

const sessionCookieName = "pfm_session"

type accountContextKey struct{}

// accountFromContext returns the authenticated account stored by
// requireSession.
func accountFromContext(ctx context.Context) *core.Account {
	account, _ := ctx.Value(accountContextKey{}).(*core.Account)
	return account
}

// sessionToken pulls the token from the session cookie or a bearer header.
func sessionToken(r *http.Request) string {
	if c, err := r.Cookie(sessionCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

// requireSession resolves the session token to an account and stores it in
// the request context. Requests without a live session get a 401.
func (s *Server) requireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := sessionToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "no_session", "authentication required")
			return
		}

		account, err := s.store.FindSessionAccount(r.Context(), token, s.now())
		if err != nil {
			if errors.Is(err, core.ErrNotFound) {
				writeError(w, http.StatusUnauthorized, "no_session", "session expired or invalid")
				return
			}
			writeDomainError(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), accountContextKey{}, account)
		next(w, r.WithContext(ctx))
	}
}

type accountResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "malformed request body")
		return
	}

	if err := s.guard.Register(r.Context(), req.Username, req.Password); err != nil {
		writeDomainError(w, err)
		return
	}

	account, err := s.store.FindAccountByUsername(r.Context(), req.Username)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	s.logger.InfoContext(r.Context(), "Account registered",
		log.FieldOperation, log.OpRegister,
		log.FieldUserID, account.ID,
		log.FieldUsername, account.Username)

	writeJSON(w, http.StatusCreated, accountResponse{ID: account.ID, Username: account.Username})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "malformed request body")
		return
	}

	userID, err := s.guard.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	token, err := generateSessionToken()
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Session token generation failed", log.FieldError, err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	expiresAt := s.now().Add(s.sessionTTL)
	if err := s.store.CreateSession(r.Context(), token, userID, expiresAt); err != nil {
		writeDomainError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})

	s.logger.InfoContext(r.Context(), "Login succeeded",
		log.FieldOperation, log.OpLogin,
		log.FieldUserID, userID,
		log.FieldUsername, req.Username)

	writeJSON(w, http.StatusOK, map[string]any{
		"token":      token,
		"user_id":    userID,
		"expires_at": expiresAt,
	})
}

// handleLogout drops the session and resets the caller's failed-attempt
// counter. Logging out without a session is a no-op, not an error.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := sessionToken(r)
	if token != "" {
		if account, err := s.store.FindSessionAccount(r.Context(), token, s.now()); err == nil {
			s.guard.Logout(account.Username)
		}
		if err := s.store.DeleteSession(r.Context(), token); err != nil {
			writeDomainError(w, err)
			return
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})

	s.logger.InfoContext(r.Context(), "Logout", log.FieldOperation, log.OpLogout)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	categories := core.Categories()
	names := make([]string, 0, len(categories))
	for _, c := range categories {
		names = append(names, c.String())
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": names})
}
