package websocket

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait = 10 * time.Second
	// readWait bounds silence from the client; the client pings well within it.
	readWait = 5 * time.Minute
	// MaxMessageSize caps one client frame. A submit carrying every answer of
	// a long essay subtest fits comfortably.
	MaxMessageSize = 1 << 20
)

// WriteTyped sends a strongly-typed response payload over the WebSocket.
func WriteTyped(conn *websocket.Conn, v interface{}) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(v)
}

// WriteError sends a typed ErrorResponse over the WebSocket.
func WriteError(conn *websocket.Conn, ref, code, msg string) error {
	return WriteTyped(conn, ErrorResponse{
		Event:   EventError,
		Ref:     ref,
		Code:    code,
		Message: msg,
	})
}

// ReadMessage reads one frame and peeks at its action. The raw frame is
// returned for the action-specific decode.
func ReadMessage(conn *websocket.Conn) (RequestEnvelope, []byte, error) {
	conn.SetReadDeadline(time.Now().Add(readWait))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		return RequestEnvelope{}, nil, err
	}
	var env RequestEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return RequestEnvelope{}, raw, err
	}
	return env, raw, nil
}
