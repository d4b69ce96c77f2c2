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
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/cenkalti/backoff"

	"github.com/bubblehelp/bubblehelp/internal/bherr"
)

// dialRetryWindow bounds how long Send retries a dial against a helper
// socket that exists on disk but is not yet accepting connections (the
// helper's listener can still be starting up when the caller races it
// right after the sandbox becomes reachable).
const dialRetryWindow = 2 * time.Second

// Client issues run-in-existing-sandbox requests over the in-sandbox
// helper socket.
type Client struct {
	socketPath  string
	readTimeout time.Duration
}

// NewClient returns a Client bound to the given helper.socket path.
func NewClient(socketPath string, readTimeout time.Duration) *Client {
	return &Client{socketPath: socketPath, readTimeout: readTimeout}
}

// Send connects to the helper socket, writes req, and (if req.WaitResponse)
// reads back a single Response within the client's read timeout.
func (c *Client) Send(req Request) (*Response, error) {
	if _, err := os.Stat(c.socketPath); err != nil {
		return nil, bherr.Wrap("Client.Send", bherr.NotRunning, fmt.Errorf("helper socket %s: %w", c.socketPath, err))
	}

	conn, err := c.dial()
	if err != nil {
		return nil, bherr.Wrap("Client.Send", bherr.NotRunning, fmt.Errorf("connecting to %s: %w", c.socketPath, err))
	}
	defer conn.Close()

	line, err := Encode(req)
	if err != nil {
		return nil, bherr.Wrap("Client.Send", bherr.RpcProtocol, err)
	}
	if _, err := conn.Write(line); err != nil {
		return nil, bherr.Wrap("Client.Send", bherr.Io, fmt.Errorf("writing request: %w", err))
	}
	if !req.WaitResponse {
		return nil, nil
	}

	if err := conn.SetReadDeadline(time.Now().Add(c.readTimeout)); err != nil {
		return nil, bherr.Wrap("Client.Send", bherr.Io, err)
	}
	reader := bufio.NewReader(conn)
	respLine, err := reader.ReadBytes('\n')
	if err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return nil, bherr.New("Client.Send", bherr.RpcTimeout)
		}
		return nil, bherr.Wrap("Client.Send", bherr.RpcProtocol, fmt.Errorf("reading response: %w", err))
	}

	resp, err := DecodeResponse(respLine[:len(respLine)-1])
	if err != nil {
		return nil, bherr.Wrap("Client.Send", bherr.RpcProtocol, fmt.Errorf("decoding response: %w", err))
	}
	return &resp, nil
}

// dial retries net.Dial against a constant backoff until dialRetryWindow
// elapses, so a caller that wins the race against the helper's listener
// setup gets one more chance instead of an immediate NotRunning.
func (c *Client) dial() (net.Conn, error) {
	ctx, cancel := context.WithTimeout(context.Background(), dialRetryWindow)
	defer cancel()

	var conn net.Conn
	op := func() error {
		var dialErr error
		conn, dialErr = net.Dial("unix", c.socketPath)
		return dialErr
	}
	b := backoff.WithContext(backoff.NewConstantBackOff(50*time.Millisecond), ctx)
	if err := backoff.Retry(op, b); err != nil {
		return nil, err
	}
	return conn, nil
}
