package client

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/goccy/go-json"

	domainerrors "github.com/listoapp/listo/internal/errors"
)

// StatusDetails is attached to TRANSPORT errors caused by a non-2xx answer.
type StatusDetails struct {
	Status int    `json:"status"`
	Code   string `json:"code,omitempty"`
}

type statusError struct {
	status int
	body   []byte
}

func (e *statusError) Error() string {
	return fmt.Sprintf("server returned %d", e.status)
}

// toDomain turns a non-2xx answer into a TRANSPORT error, keeping the
// server's own code and message when the body carries them.
func (e *statusError) toDomain(op string) *domainerrors.Error {
	var apiErr struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	_ = json.Unmarshal(e.body, &apiErr)

	msg := apiErr.Message
	if msg == "" {
		msg = http.StatusText(e.status)
	}
	return domainerrors.Transportf("%s: server returned %d: %s", op, e.status, msg).
		WithDetails(StatusDetails{Status: e.status, Code: apiErr.Code})
}

// StatusOf returns the HTTP status and server error code behind err, if err
// came from a non-2xx answer.
func StatusOf(err error) (status int, code string, ok bool) {
	var de *domainerrors.Error
	if !errors.As(err, &de) {
		return 0, "", false
	}
	d, ok := de.Details.(StatusDetails)
	if !ok {
		return 0, "", false
	}
	return d.Status, d.Code, true
}

// IsAuthFailure reports whether err means the token was refused.
func IsAuthFailure(err error) bool {
	status, _, ok := StatusOf(err)
	return ok && status == http.StatusUnauthorized
}
