// Package ipc handles inter-process communication between the daemon and clients.
package ipc

import (
	"encoding/json"
	"fmt"

	"github.com/austinkregel/local-media/ampd/internal/queue"
	"github.com/austinkregel/local-media/ampd/internal/transport"
)

// CommandType represents the type of command
type CommandType string

const (
	// Opening media
	CmdOpenFolder      CommandType = "openFolder"
	CmdOpenFile        CommandType = "openFile"
	CmdDoubleClickFile CommandType = "doubleClickFile"

	// Transport
	CmdPlay      CommandType = "play"
	CmdPause     CommandType = "pause"
	CmdStop      CommandType = "stop"
	CmdPlayPause CommandType = "playPause"
	CmdNext      CommandType = "next"
	CmdPrev      CommandType = "prev"
	CmdSeek      CommandType = "seek"
	CmdVolume    CommandType = "volume"

	// Modes
	CmdToggleShuffle CommandType = "toggleShuffle"
	CmdSetShuffle    CommandType = "setShuffle"
	CmdCycleLoop     CommandType = "cycleLoop"
	CmdSetLoop       CommandType = "setLoop"

	// Read-outs
	CmdStatus   CommandType = "status"
	CmdGetQueue CommandType = "getQueue"

	// Event stream
	CmdSubscribe   CommandType = "subscribe"
	CmdUnsubscribe CommandType = "unsubscribe"
)

// PushMessage represents a server-initiated message (no request needed)
type PushMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Request represents a client request
type Request struct {
	Cmd  CommandType     `json:"cmd"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Response represents a server response
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// PathRequest is the data for openFolder, openFile and doubleClickFile
type PathRequest struct {
	Path string `json:"path"`
}

// SeekRequest is the data for a seek command
type SeekRequest struct {
	Position int64 `json:"position"` // milliseconds
}

// VolumeRequest is the data for a volume command
type VolumeRequest struct {
	Level int `json:"level"` // 0 - 100
}

// SetShuffleRequest is the data for a setShuffle command
type SetShuffleRequest struct {
	Enabled bool `json:"enabled"`
}

// SetLoopRequest is the data for a setLoop command
type SetLoopRequest struct {
	Mode string `json:"mode"` // "off", "all", "one"
}

// StatusResponse is the response to a status command
type StatusResponse struct {
	transport.Status
	Line string `json:"line"`
}

// GetQueueResponse is the response to a getQueue command
type GetQueueResponse struct {
	Items   []transport.TrackInfo `json:"items"`
	Index   int                   `json:"index"`
	Loop    queue.LoopMode        `json:"loop"`
	Shuffle bool                  `json:"shuffle"`
}

// SubscribeResponse is the response to a subscribe command
type SubscribeResponse struct {
	ID string `json:"id"`
}

// envelope tells responses and pushes apart on a shared stream
type envelope struct {
	Type string `json:"type"`
}

// EncodeRequest encodes a request to JSON
func EncodeRequest(req *Request) ([]byte, error) {
	return json.Marshal(req)
}

// DecodeRequest decodes a request from JSON
func DecodeRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to decode request: %w", err)
	}
	if req.Cmd == "" {
		return nil, fmt.Errorf("failed to decode request: missing cmd")
	}
	return &req, nil
}

// NewRequest builds a request carrying data
func NewRequest(cmd CommandType, data interface{}) (*Request, error) {
	req := &Request{Cmd: cmd}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s data: %w", cmd, err)
		}
		req.Data = raw
	}
	return req, nil
}

// EncodeResponse encodes a response to JSON
func EncodeResponse(resp *Response) ([]byte, error) {
	return json.Marshal(resp)
}

// DecodeResponse decodes a response from JSON
func DecodeResponse(data []byte) (*Response, error) {
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &resp, nil
}

// DecodePush decodes a push message, reporting false for anything else
func DecodePush(data []byte) (*PushMessage, bool) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil || env.Type == "" {
		return nil, false
	}
	var msg PushMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, false
	}
	return &msg, true
}

// NewSuccessResponse creates a successful response
func NewSuccessResponse(data interface{}) (*Response, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, err
		}
	}
	return &Response{
		Success: true,
		Data:    rawData,
	}, nil
}

// NewErrorResponse creates an error response
func NewErrorResponse(err string) *Response {
	return &Response{
		Success: false,
		Error:   err,
	}
}

// NewPushMessage creates a push message for streaming data
func NewPushMessage(msgType string, data interface{}) ([]byte, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, err
		}
	}
	msg := PushMessage{
		Type: msgType,
		Data: rawData,
	}
	return json.Marshal(msg)
}

// NewEventMessage encodes a transport event as a push message
func NewEventMessage(ev transport.Event) ([]byte, error) {
	return NewPushMessage(string(ev.Kind()), ev)
}
