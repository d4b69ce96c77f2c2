// Copyright 2019-2022 igo95862
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package rpc implements the newline-terminated JSON protocol spoken
// over the in-sandbox helper socket.
package rpc

import "encoding/json"

// Request is one run-in-existing-sandbox request, encoded as a single
// JSON line.
type Request struct {
	ArgsToRun    []string `json:"args_to_run"`
	WaitResponse bool     `json:"wait_response"`
}

// Response carries the result of a Request made with WaitResponse set.
type Response struct {
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	ExitCode int    `json:"exit_code"`
}

// Encode renders req as a single JSON line, newline included.
func Encode(req Request) ([]byte, error) {
	b, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

// DecodeRequest parses a single JSON line (without its trailing newline)
// into a Request, used by the in-sandbox helper's listener.
func DecodeRequest(line []byte) (Request, error) {
	var req Request
	err := json.Unmarshal(line, &req)
	return req, err
}

// DecodeResponse parses a single JSON line into a Response.
func DecodeResponse(line []byte) (Response, error) {
	var resp Response
	err := json.Unmarshal(line, &resp)
	return resp, err
}

// EncodeResponse renders resp as a single JSON line, newline included.
func EncodeResponse(resp Response) ([]byte, error) {
	b, err := json.Marshal(resp)
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}
