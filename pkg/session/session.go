// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package session drives the accelerator's command protocol over a link:
// liveness probing, starting a computation, polling for completion, and
// fetching the result record.
//
// Every operation issues one command and performs one bounded read, so no
// call blocks longer than the configured timeouts. A Session is meant to be
// owned by one goroutine at a time. It holds no locks; callers that act on it
// from several goroutines must hand it over explicitly.
package session

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Thermoquad/systolink/pkg/accel"
	"github.com/Thermoquad/systolink/pkg/link"
)

// Session is an open connection to a responsive accelerator.
type Session struct {
	link     link.Link
	opts     options
	id       string
	endpoint string
	logger   *zap.Logger
	closed   bool
}

// Connect opens the link described by cfg and probes it with PING. A
// positive cfg.ReadTimeout is the session's read timeout unless
// WithReadTimeout is given, which takes precedence.
func Connect(cfg link.Config, opts ...Option) (*Session, error) {
	o := newOptions(opts)
	o.adoptReadTimeout(cfg.ReadTimeout)
	cfg.ReadTimeout = o.readTimeout

	l, err := link.Open(cfg)
	if err != nil {
		o.logger.Error("Failed to open link", zap.String("endpoint", cfg.String()), zap.Error(err))
		return nil, &TransportError{Op: "open", Err: err}
	}
	return connect(l, o, cfg.String())
}

// ConnectLink takes ownership of an open link and probes it with PING. The
// link is closed if the probe fails.
func ConnectLink(l link.Link, opts ...Option) (*Session, error) {
	return connect(l, newOptions(opts), describe(l))
}

func describe(l link.Link) string {
	if str, ok := l.(fmt.Stringer); ok {
		return str.String()
	}
	return fmt.Sprintf("%T", l)
}

func connect(l link.Link, o options, endpoint string) (*Session, error) {
	s := &Session{
		link:     l,
		opts:     o,
		id:       uuid.NewString(),
		endpoint: endpoint,
	}
	s.logger = o.logger.With(
		zap.String("session_id", s.id),
		zap.String("endpoint", endpoint),
	)

	if err := l.SetReadTimeout(o.readTimeout); err != nil {
		l.Close()
		return nil, &TransportError{Op: "configure", Err: err}
	}

	if o.settleDelay > 0 {
		s.logger.Debug("Waiting for link to settle", zap.Duration("delay", o.settleDelay))
		time.Sleep(o.settleDelay)
	}

	reply, err := s.exchange(accel.CmdPing, 1, o.probeTimeout)
	if err != nil {
		s.logger.Error("Liveness probe failed", zap.Error(err))
		l.Close()
		return nil, err
	}
	if !accel.IsPong(reply) {
		s.logger.Warn("No PONG from device", zap.String("reply", accel.FormatReply(reply)))
		l.Close()
		return nil, fmt.Errorf("%w: probe reply %s", ErrNoResponse, accel.FormatReply(reply))
	}

	s.logger.Info("Session connected")
	return s, nil
}

// ID returns the session's unique identifier.
func (s *Session) ID() string { return s.id }

// Endpoint describes the link the session runs over.
func (s *Session) Endpoint() string { return s.endpoint }

// Logger returns the session's logger, tagged with its ID.
func (s *Session) Logger() *zap.Logger { return s.logger }

// exchange sends one command and reads up to n reply bytes within timeout.
// A short reply with a nil error means the deadline passed.
func (s *Session) exchange(cmd accel.Command, n int, timeout time.Duration) ([]byte, error) {
	if s.closed {
		return nil, ErrClosed
	}

	if s.opts.flushInput {
		if err := s.link.ResetInputBuffer(); err != nil {
			return nil, &TransportError{Op: "reset input", Err: err}
		}
	}

	if timeout != s.opts.readTimeout {
		if err := s.link.SetReadTimeout(timeout); err != nil {
			return nil, &TransportError{Op: "set timeout", Err: err}
		}
		defer s.link.SetReadTimeout(s.opts.readTimeout)
	}

	if _, err := s.link.Write([]byte{accel.Encode(cmd)}); err != nil {
		return nil, &TransportError{Op: "write " + cmd.String(), Err: err}
	}

	reply, err := s.link.ReadExact(n)
	if err != nil {
		return reply, &TransportError{Op: "read " + cmd.String(), Err: err}
	}

	s.logger.Debug("Exchange",
		zap.Stringer("command", cmd),
		zap.String("reply", accel.FormatReply(reply)),
	)
	return reply, nil
}

// Ping reports whether the device answers PING with exactly one PONG. A
// timeout, a wrong byte, or a transport failure all count as false.
func (s *Session) Ping() bool {
	reply, err := s.exchange(accel.CmdPing, 1, s.opts.readTimeout)
	if err != nil {
		s.logger.Warn("Ping failed", zap.Error(err))
		return false
	}
	return accel.IsPong(reply)
}

// StartProcessing sends START. Rejection is an outcome, not an error; the
// error is non-nil only for transport failures or a closed session.
func (s *Session) StartProcessing() (accel.StartOutcome, error) {
	reply, err := s.exchange(accel.CmdStart, 1, s.opts.readTimeout)
	if err != nil {
		return accel.StartRejected, err
	}

	outcome := accel.StartOutcomeFromReply(reply)
	if outcome.Accepted() {
		s.logger.Info("Processing started", zap.Stringer("outcome", outcome))
	} else {
		s.logger.Warn("Start rejected", zap.String("reply", accel.FormatReply(reply)))
	}
	return outcome, nil
}

// PollStatus sends STATUS once. It never retries; a timeout or unrecognized
// byte yields StatusUnknown with a nil error.
func (s *Session) PollStatus() (accel.DeviceStatus, error) {
	reply, err := s.exchange(accel.CmdStatus, 1, s.opts.readTimeout)
	if err != nil {
		return accel.StatusUnknown, err
	}

	status := accel.StatusFromReply(reply)
	if status == accel.StatusUnknown && len(reply) > 0 {
		s.logger.Warn("Unrecognized status byte", zap.String("reply", accel.FormatReply(reply)))
	}
	return status, nil
}

// Raw sends an arbitrary command byte and returns up to n reply bytes. A
// short reply means the read timeout passed.
func (s *Session) Raw(cmd accel.Command, n int) ([]byte, error) {
	return s.exchange(cmd, n, s.opts.readTimeout)
}

// Disconnect closes the link. Later calls return nil and leave the link
// alone.
func (s *Session) Disconnect() error {
	if s.closed {
		return nil
	}
	s.closed = true

	if err := s.link.Close(); err != nil {
		s.logger.Error("Failed to close link", zap.Error(err))
		return &TransportError{Op: "close", Err: err}
	}
	s.logger.Info("Session disconnected")
	return nil
}

// Close is Disconnect, making a Session an io.Closer.
func (s *Session) Close() error {
	return s.Disconnect()
}
