package rest

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/sherryycxie/tables/internal/common"
)

// Error codes the backend uses for JWT problems.
const (
	codeJWTExpired = "PGRST301"
	codeJWTInvalid = "PGRST302"
	codeNoRows     = "PGRST116"
)

// APIError is a non-2xx response from the backend.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// Unwrap classifies the response so callers can use errors.Is with the
// common sentinels instead of inspecting messages.
func (e *APIError) Unwrap() error {
	switch {
	case e.isTokenExpired():
		return common.ErrTokenExpired
	case e.Status == http.StatusUnauthorized:
		return common.ErrNotAuthenticated
	case e.Status == http.StatusNotAcceptable && e.Code == codeNoRows,
		e.Status == http.StatusNotFound:
		return common.ErrNotFound
	case e.Status >= http.StatusInternalServerError:
		return common.ErrUnavailable
	default:
		return nil
	}
}

func (e *APIError) isTokenExpired() bool {
	if e.Status != http.StatusUnauthorized {
		return false
	}
	msg := strings.ToLower(e.Message)
	return e.Code == codeJWTExpired ||
		strings.Contains(msg, "jwt expired") ||
		(e.Code == codeJWTInvalid && strings.Contains(msg, "expired"))
}
