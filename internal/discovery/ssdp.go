// Package discovery finds LinkPlay-based renderers on the local network via
// SSDP.
package discovery

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"sort"
	"strings"
	"time"
)

// Device is one discovered renderer.
type Device struct {
	IP       string
	Location string
	USN      string
	Server   string
}

type udpConn interface {
	WriteToUDP(b []byte, addr *net.UDPAddr) (int, error)
	ReadFromUDP(b []byte) (int, *net.UDPAddr, error)
	SetReadDeadline(t time.Time) error
	Close() error
}

var listenUDP = func(network string, laddr *net.UDPAddr) (udpConn, error) {
	return net.ListenUDP(network, laddr)
}

var now = time.Now

const searchTarget = "urn:schemas-upnp-org:device:MediaRenderer:1"

// Discover runs an SSDP M-SEARCH for media renderers and returns the unique
// devices that answered within timeout, sorted by IP.
func Discover(ctx context.Context, timeout time.Duration) ([]Device, error) {
	payload := strings.Join([]string{
		"M-SEARCH * HTTP/1.1",
		"HOST: 239.255.255.250:1900",
		`MAN: "ssdp:discover"`,
		"MX: 1",
		"ST: " + searchTarget,
		"", "",
	}, "\r\n")

	conn, err := listenUDP("udp4", &net.UDPAddr{IP: net.IPv4zero, Port: 0})
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	dst := &net.UDPAddr{IP: net.ParseIP("239.255.255.250"), Port: 1900}

	// UDP is unreliable, send multiple times.
	for i := 0; i < 3; i++ {
		if _, err := conn.WriteToUDP([]byte(payload), dst); err != nil {
			return nil, err
		}
	}
	slog.Debug("ssdp: sent M-SEARCH", "dst", dst.String(), "st", searchTarget)

	deadline := now().Add(timeout)
	byIP := map[string]Device{}

	buf := make([]byte, 64*1024)
Loop:
	for {
		if now().After(deadline) {
			break
		}
		select {
		case <-ctx.Done():
			// Treat DeadlineExceeded like a normal timeout so callers can fall back.
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				break Loop
			}
			return nil, ctx.Err()
		default:
		}

		_ = conn.SetReadDeadline(now().Add(200 * time.Millisecond))
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			if nerr, ok := err.(net.Error); ok && nerr.Timeout() {
				continue
			}
			// Some platforms can return spurious read errors while sockets are closing.
			break
		}
		dev, ok := parseResponse(buf[:n])
		if !ok {
			continue
		}
		slog.Debug("ssdp: response", "ip", dev.IP, "usn", dev.USN, "server", dev.Server)
		byIP[dev.IP] = dev
	}

	out := make([]Device, 0, len(byIP))
	for _, d := range byIP {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IP < out[j].IP })
	return out, nil
}

func parseResponse(b []byte) (Device, bool) {
	// SSDP responses are HTTP-like with CRLF line endings.
	s := bufio.NewScanner(bytes.NewReader(b))
	s.Split(bufio.ScanLines)

	if !s.Scan() {
		return Device{}, false
	}
	first := strings.TrimSpace(s.Text())
	if !strings.HasPrefix(first, "HTTP/") {
		return Device{}, false
	}

	headers := map[string]string{}
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" {
			break
		}
		k, v, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		headers[strings.ToLower(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}

	loc := headers["location"]
	if loc == "" {
		return Device{}, false
	}
	ip, err := hostOf(loc)
	if err != nil {
		return Device{}, false
	}
	return Device{
		IP:       ip,
		Location: loc,
		USN:      headers["usn"],
		Server:   headers["server"],
	}, true
}

func hostOf(location string) (string, error) {
	u, err := url.Parse(location)
	if err != nil {
		return "", err
	}
	host := u.Hostname()
	if host == "" {
		return "", fmt.Errorf("location host missing: %q", location)
	}
	return host, nil
}
