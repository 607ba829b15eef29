// Package codec serializes Records against compiled schemas and reads them
// back.
//
// Encoding is build tree -> size -> exact allocation -> write. Decoding walks
// the schema against the buffer, threading the bytes consumed by variable
// length content forward so every field is read at its static offset plus
// the drift accumulated before it.
package codec

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Record is a structured value keyed by field name. Nested schemas are
// Records, arrays are slices.
type Record = map[string]any

// Codec carries the text collaborator and a logger. It holds no per-call
// state and is safe for concurrent use.
type Codec struct {
	text   TextCodec
	logger *zerolog.Logger
}

type Option func(*Codec)

// WithText replaces the default UTF-8 text codec.
func WithText(tc TextCodec) Option {
	return func(c *Codec) {
		if tc != nil {
			c.text = tc
		}
	}
}

// WithLogger routes codec logging to logger instead of the global logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Codec) {
		c.logger = &logger
	}
}

func New(opts ...Option) *Codec {
	c := &Codec{text: UTF8}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var defaultCodec = New()

// Default returns the package-level codec.
func Default() *Codec { return defaultCodec }

func (c *Codec) log() *zerolog.Logger {
	if c.logger != nil {
		return c.logger
	}
	return &log.Logger
}
