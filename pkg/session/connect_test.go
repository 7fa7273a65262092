// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package session

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Thermoquad/systolink/pkg/accel"
	"github.com/Thermoquad/systolink/pkg/link"
)

// newSlowBridge serves a WebSocket device that answers PING at once and
// STATUS with DONE after statusDelay.
func newSlowBridge(t *testing.T, statusDelay time.Duration) string {
	t.Helper()
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var reply byte
			switch data[0] {
			case 'P':
				reply = 'O'
			case '?':
				time.Sleep(statusDelay)
				reply = 'D'
			default:
				continue
			}
			if err := conn.WriteMessage(websocket.BinaryMessage, []byte{reply}); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestConnect_UsesLinkReadTimeout(t *testing.T) {
	if testing.Short() {
		t.Skip("waits past the default read timeout")
	}
	url := newSlowBridge(t, link.DefaultReadTimeout+300*time.Millisecond)

	s, err := Connect(link.Config{URL: url, ReadTimeout: link.DefaultReadTimeout + 2*time.Second},
		WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	defer s.Disconnect()

	assert.Equal(t, link.DefaultReadTimeout+2*time.Second, s.opts.readTimeout)
	assert.Equal(t, s.opts.readTimeout, s.opts.resultsTimeout)

	status, err := s.PollStatus()
	require.NoError(t, err)
	assert.Equal(t, accel.StatusDone, status)
}

func TestConnect_ReadTimeoutOptionTakesPrecedence(t *testing.T) {
	url := newSlowBridge(t, 400*time.Millisecond)

	s, err := Connect(link.Config{URL: url, ReadTimeout: 5 * time.Second},
		WithLogger(zaptest.NewLogger(t)),
		WithReadTimeout(100*time.Millisecond))
	require.NoError(t, err)
	defer s.Disconnect()

	assert.Equal(t, 100*time.Millisecond, s.opts.readTimeout)

	start := time.Now()
	status, err := s.PollStatus()
	require.NoError(t, err)
	assert.Equal(t, accel.StatusUnknown, status)
	assert.Less(t, time.Since(start), 400*time.Millisecond)
}

func TestOptions_AdoptReadTimeout(t *testing.T) {
	o := newOptions(nil)
	o.adoptReadTimeout(3 * time.Second)
	assert.Equal(t, 3*time.Second, o.readTimeout)
	assert.Equal(t, 3*time.Second, o.resultsTimeout)

	o = newOptions([]Option{WithResultsTimeout(7 * time.Second)})
	o.adoptReadTimeout(3 * time.Second)
	assert.Equal(t, 3*time.Second, o.readTimeout)
	assert.Equal(t, 7*time.Second, o.resultsTimeout)

	o = newOptions([]Option{WithReadTimeout(time.Second)})
	o.adoptReadTimeout(3 * time.Second)
	assert.Equal(t, time.Second, o.readTimeout)
	assert.Equal(t, time.Second, o.resultsTimeout)

	o = newOptions(nil)
	o.adoptReadTimeout(0)
	assert.Equal(t, link.DefaultReadTimeout, o.readTimeout)
}
