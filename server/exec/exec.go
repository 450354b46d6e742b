/******************************************************************************
 *
 *  Description :
 *    Command Executor interface: the entry point into the emshop business
 *    core. The broker treats it as opaque beyond the success flag, the
 *    human-readable message and the raw data payload.
 *
 *****************************************************************************/
package exec

import (
	"context"
	"encoding/json"
	"errors"
)

// Well-known command names the broker itself issues.
const (
	CmdLogin    = "login"
	CmdRegister = "register"
)

// Result is the outcome of a business command.
type Result struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// LoginData is the part of a successful login result the broker needs to
// attach an identity to a connection. Everything else in the payload is
// passed through to the client untouched.
type LoginData struct {
	UserID   int64 `json:"user_id"`
	UserInfo struct {
		Role string `json:"role"`
	} `json:"user_info"`
}

// Executor runs a named business command with JSON-compatible parameters.
// Implementations are expected to be safe for concurrent use.
type Executor interface {
	Execute(ctx context.Context, command string, params map[string]any) (*Result, error)
}

// ErrUnavailable is returned when the business core cannot be reached.
var ErrUnavailable = errors.New("exec: business core unavailable")
