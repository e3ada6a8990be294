package ipc

import (
	"encoding/json"
	"testing"

	"github.com/austinkregel/local-media/ampd/internal/queue"
	"github.com/austinkregel/local-media/ampd/internal/transport"
)

func TestNewRequestEncodesData(t *testing.T) {
	req, err := NewRequest(CmdOpenFolder, PathRequest{Path: "/music"})
	if err != nil {
		t.Fatalf("NewRequest failed: %v", err)
	}

	data, err := EncodeRequest(req)
	if err != nil {
		t.Fatalf("EncodeRequest failed: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Result is not valid JSON: %v", err)
	}
	if decoded["cmd"] != "openFolder" {
		t.Errorf("Expected cmd 'openFolder', got '%v'", decoded["cmd"])
	}
	inner := decoded["data"].(map[string]interface{})
	if inner["path"] != "/music" {
		t.Errorf("Expected path '/music', got '%v'", inner["path"])
	}
}

func TestDecodeRequest(t *testing.T) {
	req, err := DecodeRequest([]byte(`{"cmd":"seek","data":{"position":90000}}`))
	if err != nil {
		t.Fatalf("DecodeRequest failed: %v", err)
	}
	if req.Cmd != CmdSeek {
		t.Errorf("Expected cmd 'seek', got '%s'", req.Cmd)
	}

	seek, err := decodeData[SeekRequest](req)
	if err != nil {
		t.Fatal(err)
	}
	if seek.Position != 90000 {
		t.Errorf("Expected position 90000, got %d", seek.Position)
	}
}

func TestDecodeRequestInvalid(t *testing.T) {
	for _, input := range []string{`not valid json`, `{"data":{}}`} {
		if _, err := DecodeRequest([]byte(input)); err == nil {
			t.Errorf("Expected error for %q", input)
		}
	}
}

func TestDecodeDataMissing(t *testing.T) {
	if _, err := decodeData[PathRequest](&Request{Cmd: CmdOpenFile}); err == nil {
		t.Error("Expected error for missing data")
	}
	if _, err := decodeData[VolumeRequest](&Request{Cmd: CmdVolume, Data: json.RawMessage(`{"level":"loud"}`)}); err == nil {
		t.Error("Expected error for mistyped data")
	}
}

func TestNewSuccessResponse(t *testing.T) {
	resp, err := NewSuccessResponse(SubscribeResponse{ID: "abc"})
	if err != nil {
		t.Fatalf("NewSuccessResponse failed: %v", err)
	}
	if !resp.Success {
		t.Error("Expected success to be true")
	}

	var sub SubscribeResponse
	if err := json.Unmarshal(resp.Data, &sub); err != nil {
		t.Fatal(err)
	}
	if sub.ID != "abc" {
		t.Errorf("Expected id 'abc', got '%s'", sub.ID)
	}
}

func TestNewSuccessResponseNilData(t *testing.T) {
	resp, err := NewSuccessResponse(nil)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Data != nil {
		t.Errorf("Expected nil data, got %s", resp.Data)
	}
}

func TestNewErrorResponse(t *testing.T) {
	resp := NewErrorResponse("empty queue")
	if resp.Success {
		t.Error("Expected success to be false")
	}
	if resp.Error != "empty queue" {
		t.Errorf("Unexpected error %q", resp.Error)
	}
}

func TestEventMessage(t *testing.T) {
	data, err := NewEventMessage(transport.ModeChanged{Loop: queue.LoopAll, Shuffle: true})
	if err != nil {
		t.Fatal(err)
	}

	msg, ok := DecodePush(data)
	if !ok {
		t.Fatal("Expected a push message")
	}
	if msg.Type != "modeChanged" {
		t.Errorf("Expected type modeChanged, got %s", msg.Type)
	}

	var mode transport.ModeChanged
	if err := json.Unmarshal(msg.Data, &mode); err != nil {
		t.Fatal(err)
	}
	if mode.Loop != queue.LoopAll || !mode.Shuffle {
		t.Errorf("Unexpected payload %+v", mode)
	}
}

func TestDecodePushIgnoresResponses(t *testing.T) {
	if _, ok := DecodePush([]byte(`{"success":true}`)); ok {
		t.Error("A response is not a push message")
	}
}

func TestStatusResponseFlattens(t *testing.T) {
	st := transport.Status{State: transport.StatePlaying, Size: 3, PositionMs: 1500, Loop: queue.LoopOne}
	data, err := json.Marshal(StatusResponse{Status: st, Line: "x"})
	if err != nil {
		t.Fatal(err)
	}

	var decoded map[string]interface{}
	json.Unmarshal(data, &decoded)
	if decoded["state"] != "playing" || decoded["position"] != 1500.0 || decoded["loop"] != "one" || decoded["line"] != "x" {
		t.Errorf("Unexpected status JSON %s", data)
	}
}
