package command

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/mitchellh/mapstructure"

	"cueloop.dev/cueloop/internal/control"
)

// UDSClient is a JSON-RPC client over Unix Domain Socket.
type UDSClient struct {
	socketPath string
	timeout    time.Duration
}

// NewUDSClient creates a new UDS client. A zero timeout means 10 seconds.
func NewUDSClient(socketPath string, timeout time.Duration) *UDSClient {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &UDSClient{
		socketPath: socketPath,
		timeout:    timeout,
	}
}

// Call sends one command and waits for its response.
func (c *UDSClient) Call(ctx context.Context, method string, params interface{}) (*Response, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to socket %s: %w", c.socketPath, err)
	}
	defer conn.Close()

	deadline := time.Now().Add(c.timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	conn.SetDeadline(deadline)

	var paramsJSON json.RawMessage
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal params: %w", err)
		}
		paramsJSON = data
	}

	reqID := fmt.Sprintf("req-%d", time.Now().UnixNano())
	req := JSONRPCRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  paramsJSON,
		ID:      reqID,
	}

	encoder := json.NewEncoder(conn)
	if err := encoder.Encode(req); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	scanner := bufio.NewScanner(conn)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("failed to read response: %w", err)
		}
		return nil, fmt.Errorf("connection closed without response")
	}

	var jsonrpcResp JSONRPCResponse
	if err := json.Unmarshal(scanner.Bytes(), &jsonrpcResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	respIDStr := fmt.Sprintf("%v", jsonrpcResp.ID)
	if respIDStr != reqID {
		return nil, fmt.Errorf("response ID mismatch: expected %v, got %v", reqID, respIDStr)
	}

	return &Response{
		ID:     respIDStr,
		Result: jsonrpcResp.Result,
		Error:  jsonrpcResp.Error,
	}, nil
}

// DecodeResult maps a response result (a generic JSON object after the wire
// round trip) onto a typed struct using its json tags.
func DecodeResult(result interface{}, out interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "json",
		Result:  out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(result)
}

// RecordStart is a convenience method for the record_start command.
func (c *UDSClient) RecordStart(ctx context.Context, name string) (*Response, error) {
	return c.Call(ctx, "record_start", RecordStartParams{Name: name})
}

// RecordStop is a convenience method for the record_stop command.
func (c *UDSClient) RecordStop(ctx context.Context) (*Response, error) {
	return c.Call(ctx, "record_stop", nil)
}

// Play is a convenience method for the play command.
func (c *UDSClient) Play(ctx context.Context, name string) (*Response, error) {
	return c.Call(ctx, "play", PlayParams{Name: name})
}

// PlaybackStop is a convenience method for the playback_stop command.
func (c *UDSClient) PlaybackStop(ctx context.Context) (*Response, error) {
	return c.Call(ctx, "playback_stop", nil)
}

// PassthroughToggle is a convenience method for the passthrough_toggle command.
func (c *UDSClient) PassthroughToggle(ctx context.Context) (*Response, error) {
	return c.Call(ctx, "passthrough_toggle", nil)
}

// RateSet is a convenience method for the rate_set command.
func (c *UDSClient) RateSet(ctx context.Context, fps int) (*Response, error) {
	return c.Call(ctx, "rate_set", RateParams{FPS: fps})
}

// Blackout is a convenience method for the blackout command.
func (c *UDSClient) Blackout(ctx context.Context) (*Response, error) {
	return c.Call(ctx, "blackout", nil)
}

// Highlight is a convenience method for the highlight command.
func (c *UDSClient) Highlight(ctx context.Context, universe, channel, times int) (*Response, error) {
	return c.Call(ctx, "highlight", HighlightParams{Universe: universe, Channel: channel, Times: times})
}

// List fetches and decodes the recordings listing.
func (c *UDSClient) List(ctx context.Context) (*ListResult, error) {
	resp, err := c.Call(ctx, "list", nil)
	if err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("daemon error: %s", resp.Error.Message)
	}
	var out ListResult
	if err := DecodeResult(resp.Result, &out); err != nil {
		return nil, fmt.Errorf("failed to decode listing: %w", err)
	}
	return &out, nil
}

// Status fetches and decodes the daemon status.
func (c *UDSClient) Status(ctx context.Context) (*control.Status, error) {
	resp, err := c.Call(ctx, "daemon_status", nil)
	if err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("daemon error: %s", resp.Error.Message)
	}
	var st control.Status
	if err := DecodeResult(resp.Result, &st); err != nil {
		return nil, fmt.Errorf("failed to decode status: %w", err)
	}
	return &st, nil
}

// Shutdown is a convenience method for the daemon_shutdown command.
func (c *UDSClient) Shutdown(ctx context.Context) (*Response, error) {
	return c.Call(ctx, "daemon_shutdown", nil)
}

// Ping checks whether the daemon is alive behind the socket.
func (c *UDSClient) Ping(ctx context.Context) error {
	_, err := c.Call(ctx, "daemon_status", nil)
	return err
}
