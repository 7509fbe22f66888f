package linkplay

import (
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"wiimctl/internal/control"
)

// PushHandler receives the fields of one decoded push event together with
// the time it was observed.
type PushHandler func(fields map[control.Field]any, at time.Time)

// EventListener is the local HTTP endpoint devices NOTIFY into. Each
// registered handler gets its own opaque callback path, so one listener can
// serve any number of devices and subscriptions.
type EventListener struct {
	mu       sync.Mutex
	handlers map[string]PushHandler

	srv *http.Server
	ln  net.Listener
}

func NewEventListener() *EventListener {
	return &EventListener{handlers: map[string]PushHandler{}}
}

// Register allocates a callback token for a handler. The returned token goes
// into the CALLBACK URL for Subscribe.
func (l *EventListener) Register(h PushHandler) string {
	token := uuid.NewString()
	l.mu.Lock()
	l.handlers[token] = h
	l.mu.Unlock()
	return token
}

func (l *EventListener) Unregister(token string) {
	l.mu.Lock()
	delete(l.handlers, token)
	l.mu.Unlock()
}

// CallbackURL builds the NOTIFY URL for a token, as reachable from the
// device's side of the network.
func (l *EventListener) CallbackURL(localIP, token string) string {
	port := 0
	if l.ln != nil {
		if ta, ok := l.ln.Addr().(*net.TCPAddr); ok {
			port = ta.Port
		}
	}
	return fmt.Sprintf("http://%s:%d/notify/%s", localIP, port, token)
}

// Start binds the listener and serves NOTIFY requests until Close.
func (l *EventListener) Start(listenAddr string) error {
	ln, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return err
	}
	l.ln = ln

	mux := http.NewServeMux()
	mux.HandleFunc("/notify/", l.handleNotify)
	l.srv = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := l.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			slog.Warn("event listener stopped", "err", err)
		}
	}()
	return nil
}

func (l *EventListener) Close() error {
	if l.srv == nil {
		return nil
	}
	return l.srv.Close()
}

func (l *EventListener) handleNotify(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.URL.Path, "/notify/")
	l.mu.Lock()
	h, ok := l.handlers[token]
	l.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxResponseBytes))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	// Timestamp at observation, before any handler work.
	at := time.Now()
	fields, err := ParseEvent(body)
	if err != nil {
		slog.Debug("discarding unparseable event", "token", token, "err", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if len(fields) > 0 {
		h(fields, at)
	}
	w.WriteHeader(http.StatusOK)
}
