// Package linkplay speaks the LinkPlay HTTP control protocol used by WiiM,
// Audio Pro, Arylic and similar multiroom devices. Every command is a GET
// against /httpapi.asp; status responses are JSON with string-typed fields
// and hex-encoded metadata.
package linkplay

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultTimeout = 10 * time.Second

// maxResponseBytes bounds reads; status payloads are a few KB at most.
const maxResponseBytes = 1 << 20

type Client struct {
	HTTP *http.Client
	// EventPort overrides the UPnP eventing port, 0 means the firmware
	// default.
	EventPort int
}

func NewClient() *Client {
	return &Client{
		HTTP: &http.Client{Timeout: defaultTimeout},
	}
}

// command issues one httpapi command and returns the raw trimmed body.
func (c *Client) command(ctx context.Context, addr, cmd string) (string, error) {
	u := "http://" + addr + "/httpapi.asp?command=" + url.QueryEscape(cmd)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", &ConnectError{Addr: addr, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &ProtocolError{Addr: addr, Command: cmd, Detail: "http " + resp.Status}
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", &ConnectError{Addr: addr, Err: err}
	}
	return strings.TrimSpace(string(raw)), nil
}

// exec issues a command whose only valid answer is "OK". Anything else is a
// device-reported failure, distinct from connectivity trouble.
func (c *Client) exec(ctx context.Context, addr, cmd string) error {
	body, err := c.command(ctx, addr, cmd)
	if err != nil {
		return err
	}
	if !strings.EqualFold(body, "OK") {
		return &DeviceError{Addr: addr, Command: cmd, Response: body}
	}
	return nil
}

// commandJSON issues a command and decodes its JSON body into out.
func (c *Client) commandJSON(ctx context.Context, addr, cmd string, out any) error {
	body, err := c.command(ctx, addr, cmd)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(body), out); err != nil {
		return &ProtocolError{Addr: addr, Command: cmd, Detail: "bad json: " + err.Error()}
	}
	return nil
}

// ConnectError is a connectivity failure: the device could not be reached or
// the connection broke mid-response.
type ConnectError struct {
	Addr string
	Err  error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("device %s unreachable: %v", e.Addr, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// ProtocolError is a malformed or unexpected response: the device answered,
// but not in the shape the protocol promises.
type ProtocolError struct {
	Addr    string
	Command string
	Detail  string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("device %s: %s: %s", e.Addr, e.Command, e.Detail)
}

// DeviceError is a failure the device itself reported, typically the literal
// body "Failed" or "unknown command".
type DeviceError struct {
	Addr     string
	Command  string
	Response string
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("device %s rejected %s: %q", e.Addr, e.Command, e.Response)
}
