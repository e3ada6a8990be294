package ipc

// Request logging and payload helpers shared by the server handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/samber/lo"
)

// quietCommands are polled frequently and are not logged
var quietCommands = []CommandType{CmdStatus, CmdGetQueue}

func isQuiet(cmd CommandType) bool {
	return lo.Contains(quietCommands, cmd)
}

// logRequest logs an incoming request
func logRequest(client string, req *Request) {
	if isQuiet(req.Cmd) {
		return
	}
	log.Printf("[IPC] %s: command %s", client, req.Cmd)
}

// logResponse logs an outgoing response
func logResponse(client string, req *Request, resp *Response, duration time.Duration) {
	if isQuiet(req.Cmd) && resp.Success {
		return
	}
	if resp.Success {
		log.Printf("[IPC] %s: %s ok (%v)", client, req.Cmd, duration)
	} else {
		log.Printf("[IPC] %s: %s error=%q (%v)", client, req.Cmd, resp.Error, duration)
	}
}

// decodeData unmarshals the request payload into T
func decodeData[T any](req *Request) (T, error) {
	var v T
	if len(req.Data) == 0 {
		return v, fmt.Errorf("%s requires data", req.Cmd)
	}
	if err := json.Unmarshal(req.Data, &v); err != nil {
		return v, fmt.Errorf("invalid %s request", req.Cmd)
	}
	return v, nil
}
