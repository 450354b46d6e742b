/******************************************************************************
 *
 *  Description :
 *
 *  Definition of the wire envelopes exchanged with storefront clients and
 *  the constructors for the common replies.
 *
 *****************************************************************************/

package main

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/AshIgnis/JLU-Emshop-System-sub000/server/logs"
)

// ClientRequest is a parsed inbound envelope: {"type": string, ...fields}.
// All fields other than "type" are kept as loosely typed parameters and
// passed through to handlers untouched.
type ClientRequest struct {
	// Message type, e.g. "auth", "ping", "add_to_cart".
	Type string
	// Type-specific fields of the envelope, minus "type" itself.
	Params map[string]any

	// Short id correlating log lines of one request.
	trace string
}

var errMissingType = errors.New("message without a type")

// parseClientRequest decodes raw bytes into a ClientRequest. A JSON error or
// a missing/empty "type" field is a protocol error.
func parseClientRequest(raw []byte) (*ClientRequest, error) {
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	msgType, _ := fields["type"].(string)
	if msgType == "" {
		return nil, errMissingType
	}
	delete(fields, "type")
	return &ClientRequest{Type: msgType, Params: fields}, nil
}

// String returns a string-typed parameter, "" if absent or not a string.
func (r *ClientRequest) String(key string) string {
	s, _ := r.Params[key].(string)
	return s
}

// ServerResponse is the outbound envelope for both replies and pushes:
// {"type", "success", "message", "timestamp", "data"?}.
type ServerResponse struct {
	Type      string          `json:"type"`
	Success   bool            `json:"success"`
	Message   string          `json:"message"`
	Timestamp int64           `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

func (r *ServerResponse) serialize() []byte {
	out, _ := json.Marshal(r)
	return out
}

func timeNowMillis() int64 {
	return time.Now().UnixMilli()
}

// marshalData converts a payload into the raw "data" field. A payload which
// cannot be marshaled is dropped rather than failing the reply.
func marshalData(payload any) json.RawMessage {
	if payload == nil {
		return nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		logs.Err.Println("datamodel: failed to marshal data payload:", err)
		return nil
	}
	return data
}

// OkReply constructs a success reply of the given type.
func OkReply(msgType, message string, payload any) *ServerResponse {
	return &ServerResponse{
		Type:      msgType,
		Success:   true,
		Message:   message,
		Timestamp: timeNowMillis(),
		Data:      marshalData(payload),
	}
}

// FailReply constructs a failure reply of the given type. The connection
// stays open.
func FailReply(msgType, message string) *ServerResponse {
	return &ServerResponse{
		Type:      msgType,
		Success:   false,
		Message:   message,
		Timestamp: timeNowMillis(),
	}
}

// WelcomeReply greets a freshly accepted connection.
func WelcomeReply() *ServerResponse {
	return OkReply("welcome", "Connected to Emshop WebSocket Server", nil)
}

// ErrMalformedReply reports an unparsable frame.
func ErrMalformedReply() *ServerResponse {
	return FailReply("error", "Invalid JSON format")
}

// ErrAuthRequiredReply rejects a non-public command on an unauthenticated
// connection.
func ErrAuthRequiredReply(msgType string) *ServerResponse {
	return FailReply(msgType, "Authentication required")
}

// ErrAlreadyAuthenticatedReply rejects a repeated auth on an authenticated
// connection.
func ErrAlreadyAuthenticatedReply() *ServerResponse {
	return FailReply("auth", "Already authenticated")
}

// ErrUnknownTypeReply rejects a message type the router has no handler for.
func ErrUnknownTypeReply(msgType string) *ServerResponse {
	return FailReply(msgType, "Unknown message type")
}

// ErrInternalReply converts a handler failure into a generic failure reply.
func ErrInternalReply(msgType string) *ServerResponse {
	return FailReply(msgType, "Internal server error")
}
