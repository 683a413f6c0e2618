// Package console is the client side of the admin API: an authenticated
// session, a paginated review queue with cached pages, a decision executor
// and the confirmation modal state machine driving it.
package console

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/boostly/backend/internal/models"
)

// ErrSessionExpired is returned once the backend has answered 401 for this
// session. Every subsequent call fails fast with the same error.
var ErrSessionExpired = errors.New("admin session expired")

// APIError is a non-2xx backend response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// Session holds the base URL and bearer token for one admin sign-in. It is
// an explicit object passed to the components that call the API, not shared
// ambient state, and flips to expired on the first 401.
type Session struct {
	baseURL string
	http    *http.Client

	mu      sync.Mutex
	token   string
	expired bool
}

func NewSession(baseURL, token string) *Session {
	return &Session{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// RestoreSession rehydrates a session from a token file written by a prior
// sign-in. A missing file is not an error; the caller gets a session that
// will fail Validate.
func RestoreSession(baseURL, tokenPath string) (*Session, error) {
	raw, err := os.ReadFile(tokenPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewSession(baseURL, ""), nil
		}
		return nil, err
	}
	return NewSession(baseURL, strings.TrimSpace(string(raw))), nil
}

// Validate confirms the token against GET /admin/me and returns the signed-in
// admin. Call once after construction.
func (s *Session) Validate(ctx context.Context) (*models.User, error) {
	var me models.User
	if err := s.get(ctx, "/admin/me", nil, &me); err != nil {
		return nil, err
	}
	return &me, nil
}

// Expired reports whether a 401 has retired this session.
func (s *Session) Expired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expired
}

func (s *Session) get(ctx context.Context, path string, query url.Values, out any) error {
	return s.do(ctx, http.MethodGet, path, query, nil, out)
}

func (s *Session) post(ctx context.Context, path string, body, out any) error {
	return s.do(ctx, http.MethodPost, path, nil, body, out)
}

func (s *Session) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	s.mu.Lock()
	if s.expired {
		s.mu.Unlock()
		return ErrSessionExpired
	}
	token := s.token
	s.mu.Unlock()

	u := s.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		s.mu.Lock()
		s.expired = true
		s.mu.Unlock()
		return ErrSessionExpired
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var payload struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&payload)
		if payload.Error == "" {
			payload.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: payload.Error}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
