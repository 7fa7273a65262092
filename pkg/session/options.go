// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package session

import (
	"time"

	"go.uber.org/zap"

	"github.com/Thermoquad/systolink/pkg/link"
)

// Default timing.
const (
	DefaultProbeTimeout = 2 * time.Second
	DefaultPollInterval = time.Second
)

type options struct {
	readTimeout    time.Duration
	readTimeoutSet bool
	probeTimeout   time.Duration
	pollInterval   time.Duration
	resultsTimeout time.Duration
	resultsSet     bool
	settleDelay    time.Duration
	flushInput     bool
	logger         *zap.Logger
}

// Option configures a Session.
type Option func(*options)

func newOptions(opts []Option) options {
	o := options{
		readTimeout:  link.DefaultReadTimeout,
		probeTimeout: DefaultProbeTimeout,
		pollInterval: DefaultPollInterval,
		flushInput:   true,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	o.resultsSet = o.resultsTimeout > 0
	if !o.resultsSet {
		o.resultsTimeout = o.readTimeout
	}
	return o
}

// adoptReadTimeout takes d from the link configuration unless WithReadTimeout
// was given. The results timeout follows unless it was set explicitly.
func (o *options) adoptReadTimeout(d time.Duration) {
	if o.readTimeoutSet || d <= 0 {
		return
	}
	o.readTimeout = d
	if !o.resultsSet {
		o.resultsTimeout = d
	}
}

// WithReadTimeout bounds every single-byte reply read.
func WithReadTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.readTimeout = d
			o.readTimeoutSet = true
		}
	}
}

// WithProbeTimeout bounds the PING exchange made by Connect.
func WithProbeTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.probeTimeout = d
		}
	}
}

// WithPollInterval sets the delay between STATUS polls.
func WithPollInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.pollInterval = d
		}
	}
}

// WithResultsTimeout bounds the read of a result record. Defaults to the read
// timeout.
func WithResultsTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.resultsTimeout = d
		}
	}
}

// WithSettleDelay waits after opening the link before probing it. Bluetooth
// serial bridges drop bytes sent while the radio link is still forming.
func WithSettleDelay(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.settleDelay = d
		}
	}
}

// WithFlushInput controls whether unread input is discarded before each
// command.
func WithFlushInput(enabled bool) Option {
	return func(o *options) { o.flushInput = enabled }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}
