// Package rpc is the local control plane: a unix-socket server speaking
// NUL-delimited JSON request/response frames, and the matching client used
// by the CLI subcommands.
package rpc

import "encoding/json"

// Request is one control-plane call.
type Request struct {
	ID     string         `json:"id"`
	Method string         `json:"method"`
	Params map[string]any `json:"params"`
}

// Response carries exactly one of Result or Error.
type Response struct {
	ID     string  `json:"id"`
	Result any     `json:"result"`
	Error  *string `json:"error"`
}

func errorResponse(id, msg string) Response {
	return Response{ID: id, Error: &msg}
}

func encodeFrame(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return append(data, 0x00), nil
}
