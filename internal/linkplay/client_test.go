package linkplay

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"
)

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func httpResponse(code int, body string) *http.Response {
	return &http.Response{
		StatusCode: code,
		Status:     http.StatusText(code),
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{},
	}
}

func testClient(rt roundTripperFunc) *Client {
	return &Client{HTTP: &http.Client{Timeout: time.Second, Transport: rt}}
}

// commandOf extracts the httpapi command from a request.
func commandOf(t *testing.T, r *http.Request) string {
	t.Helper()
	cmd, err := url.QueryUnescape(r.URL.RawQuery)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	return strings.TrimPrefix(cmd, "command=")
}

func TestExecCommandShapes(t *testing.T) {
	t.Parallel()

	var got []string
	rt := roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		if r.URL.Path != "/httpapi.asp" {
			t.Fatalf("path: %q", r.URL.Path)
		}
		got = append(got, commandOf(t, r))
		return httpResponse(200, "OK"), nil
	})
	c := testClient(rt)
	ctx := context.Background()

	if err := c.Play(ctx, "10.0.0.5"); err != nil {
		t.Fatalf("play: %v", err)
	}
	if err := c.SetVolume(ctx, "10.0.0.5", 0.35); err != nil {
		t.Fatalf("vol: %v", err)
	}
	if err := c.SetMute(ctx, "10.0.0.5", true); err != nil {
		t.Fatalf("mute: %v", err)
	}
	if err := c.JoinViaRouter(ctx, "10.0.0.5", "10.0.0.1"); err != nil {
		t.Fatalf("join router: %v", err)
	}
	if err := c.JoinViaDirectLink(ctx, "10.0.0.5", "5769694d", 6); err != nil {
		t.Fatalf("join direct: %v", err)
	}
	if err := c.KickSlave(ctx, "10.0.0.1", "10.0.0.5"); err != nil {
		t.Fatalf("kick: %v", err)
	}

	want := []string{
		"setPlayerCmd:play",
		"setPlayerCmd:vol:35",
		"setPlayerCmd:mute:1",
		"ConnectMasterAp:JoinGroupMaster:eth10.0.0.1:wifi0.0.0.0",
		"ConnectMasterAp:ssid=5769694d:ch=6:auth=OPEN:encry=NONE:pwd=:chext=0",
		"multiroom:SlaveKickout:10.0.0.5",
	}
	if len(got) != len(want) {
		t.Fatalf("commands: %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("command %d: got %q want %q", i, got[i], want[i])
		}
	}
}

func TestExecDeviceError(t *testing.T) {
	t.Parallel()

	c := testClient(func(r *http.Request) (*http.Response, error) {
		return httpResponse(200, "Failed"), nil
	})
	err := c.Stop(context.Background(), "10.0.0.5")
	var de *DeviceError
	if !errors.As(err, &de) {
		t.Fatalf("expected DeviceError, got %v", err)
	}
	if de.Response != "Failed" {
		t.Fatalf("response: %q", de.Response)
	}
}

func TestCommandConnectError(t *testing.T) {
	t.Parallel()

	c := testClient(func(r *http.Request) (*http.Response, error) {
		return nil, errors.New("no route to host")
	})
	err := c.Play(context.Background(), "10.0.0.5")
	var ce *ConnectError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConnectError, got %v", err)
	}
}

func TestCommandJSONProtocolError(t *testing.T) {
	t.Parallel()

	c := testClient(func(r *http.Request) (*http.Response, error) {
		return httpResponse(200, "not json"), nil
	})
	_, err := c.Status(context.Background(), "10.0.0.5")
	var pe *ProtocolError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ProtocolError, got %v", err)
	}
}
