package auth

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/sherryycxie/tables/internal/common"
)

// Error is a failed auth endpoint response.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("auth error %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("auth error %d: %s", e.Status, e.Message)
}

func (e *Error) Unwrap() error {
	if e.Status >= http.StatusInternalServerError {
		return common.ErrUnavailable
	}
	return nil
}

func decodeError(status int, data []byte) error {
	var body struct {
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
		ErrorCode        string `json:"error_code"`
		Msg              string `json:"msg"`
		Message          string `json:"message"`
	}
	_ = json.Unmarshal(data, &body)

	e := &Error{Status: status}
	e.Code = firstNonEmpty(body.ErrorCode, body.Error)
	e.Message = firstNonEmpty(body.ErrorDescription, body.Msg, body.Message, strings.TrimSpace(string(data)), http.StatusText(status))
	return e
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
