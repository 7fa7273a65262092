// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package link

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
)

const (
	handshakeTimeout = 10 * time.Second
	dialTimeout      = 15 * time.Second
	writeWait        = 5 * time.Second

	frameQueueSize = 64
)

// WebSocketLink carries protocol bytes in binary WebSocket frames. A single
// reader goroutine owns the connection's read side and queues frames, so a
// read timeout on the link never touches the socket's own deadline. The
// other methods belong to the link's owner and must not be called
// concurrently.
type WebSocketLink struct {
	conn *websocket.Conn
	url  string

	frames  chan []byte
	done    chan struct{} // closed when the pump exits
	closing chan struct{}
	pumpErr error // valid after done is closed

	pending []byte
	timeout time.Duration
}

// OpenWebSocket dials a WebSocket bridge with optional HTTP Basic auth
func OpenWebSocket(cfg Config) (*WebSocketLink, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	switch u.Scheme {
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("unsupported URL scheme: %s (use ws:// or wss://)", u.Scheme)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: handshakeTimeout,
	}
	if u.Scheme == "wss" {
		dialer.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: cfg.NoSSLVerify,
		}
	}

	headers := http.Header{}
	if cfg.Username != "" && cfg.Password != "" {
		credentials := base64.StdEncoding.EncodeToString([]byte(cfg.Username + ":" + cfg.Password))
		headers.Set("Authorization", "Basic "+credentials)
	}

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()

	conn, resp, err := dialer.DialContext(ctx, cfg.URL, headers)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("WebSocket connection failed (HTTP %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("WebSocket connection failed: %w", err)
	}

	return newWebSocketLink(conn, cfg.URL, cfg.readTimeout()), nil
}

func newWebSocketLink(conn *websocket.Conn, rawURL string, readTimeout time.Duration) *WebSocketLink {
	w := &WebSocketLink{
		conn:    conn,
		url:     rawURL,
		frames:  make(chan []byte, frameQueueSize),
		done:    make(chan struct{}),
		closing: make(chan struct{}),
		timeout: readTimeout,
	}
	go w.pump()
	return w
}

func (w *WebSocketLink) pump() {
	defer close(w.done)
	for {
		messageType, data, err := w.conn.ReadMessage()
		if err != nil {
			w.pumpErr = err
			return
		}
		if messageType != websocket.BinaryMessage || len(data) == 0 {
			continue
		}
		select {
		case w.frames <- data:
		case <-w.closing:
			return
		}
	}
}

func (w *WebSocketLink) isClosing() bool {
	select {
	case <-w.closing:
		return true
	default:
		return false
	}
}

func (w *WebSocketLink) Write(p []byte) (int, error) {
	if w.isClosing() {
		return 0, ErrClosed
	}

	if err := w.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return 0, fmt.Errorf("failed to set write deadline: %w", err)
	}
	if err := w.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, fmt.Errorf("failed to write to %s: %w", w.url, err)
	}
	return len(p), nil
}

// ReadExact collects up to n bytes from queued frames. Bytes past n stay
// queued for the next read.
func (w *WebSocketLink) ReadExact(n int) ([]byte, error) {
	if w.isClosing() {
		return nil, ErrClosed
	}

	out := make([]byte, 0, n)
	timer := time.NewTimer(w.timeout)
	defer timer.Stop()

	for len(out) < n {
		if len(w.pending) > 0 {
			k := min(n-len(out), len(w.pending))
			out = append(out, w.pending[:k]...)
			w.pending = w.pending[k:]
			continue
		}

		select {
		case data := <-w.frames:
			w.pending = data
		case <-w.done:
			// Frames queued before the socket failed are still valid
			select {
			case data := <-w.frames:
				w.pending = data
				continue
			default:
			}
			if w.isClosing() {
				return out, ErrClosed
			}
			return out, fmt.Errorf("WebSocket connection lost after %d/%d bytes: %w", len(out), n, w.pumpErr)
		case <-timer.C:
			return out, nil
		}
	}
	return out, nil
}

func (w *WebSocketLink) SetReadTimeout(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("invalid read timeout %v", d)
	}
	w.timeout = d
	return nil
}

// ResetInputBuffer drops the partially consumed frame and every queued frame.
func (w *WebSocketLink) ResetInputBuffer() error {
	if w.isClosing() {
		return ErrClosed
	}
	w.pending = nil
	for {
		select {
		case <-w.frames:
		default:
			return nil
		}
	}
}

// Close sends a close frame and tears down the connection. Closing twice is a
// no-op.
func (w *WebSocketLink) Close() error {
	if w.isClosing() {
		return nil
	}
	close(w.closing)

	_ = w.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))

	err := w.conn.Close()
	<-w.done
	return err
}

func (w *WebSocketLink) String() string {
	return w.url
}
