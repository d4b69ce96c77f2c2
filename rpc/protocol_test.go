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

package rpc

import (
	"bytes"
	"testing"
)

func TestRequestRoundTrip(t *testing.T) {
	req := Request{ArgsToRun: []string{"/bin/echo", "hello"}, WaitResponse: true}
	line, err := Encode(req)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !bytes.HasSuffix(line, []byte("\n")) {
		t.Fatalf("Encode: expected newline-terminated output")
	}
	got, err := DecodeRequest(bytes.TrimRight(line, "\n"))
	if err != nil {
		t.Fatalf("DecodeRequest: %v", err)
	}
	if got.WaitResponse != req.WaitResponse || len(got.ArgsToRun) != len(req.ArgsToRun) {
		t.Fatalf("round-trip mismatch: got %+v, want %+v", got, req)
	}
	for i := range req.ArgsToRun {
		if got.ArgsToRun[i] != req.ArgsToRun[i] {
			t.Fatalf("round-trip mismatch at arg %d: got %q, want %q", i, got.ArgsToRun[i], req.ArgsToRun[i])
		}
	}
}

func TestResponseRoundTrip(t *testing.T) {
	resp := Response{Stdout: "hello\n", Stderr: "", ExitCode: 0}
	line, err := EncodeResponse(resp)
	if err != nil {
		t.Fatalf("EncodeResponse: %v", err)
	}
	got, err := DecodeResponse(bytes.TrimRight(line, "\n"))
	if err != nil {
		t.Fatalf("DecodeResponse: %v", err)
	}
	if got != resp {
		t.Fatalf("round-trip mismatch: got %+v, want %+v", got, resp)
	}
}
