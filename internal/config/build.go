package config

import (
	"fmt"

	"github.com/danmuck/schemawire/internal/protocol/frame"
	"github.com/danmuck/schemawire/internal/protocol/registry"
	"github.com/danmuck/schemawire/internal/protocol/schema"
)

// Registry compiles the configured message set.
func (c Config) Registry(opts ...registry.Option) (*registry.Registry, error) {
	return registry.FromMap(c.Messages, opts...)
}

// Layout compiles the configured header.
func (c Config) Layout() (frame.Layout, error) {
	s, err := schema.Compile("header", schema.Definition{Fields: c.Header.Fields}, nil)
	if err != nil {
		return frame.Layout{}, fmt.Errorf("header: %w", err)
	}
	return frame.NewLayout(s, c.Header.IDField, c.Header.SizeField)
}

func (c Config) FrameLimits() frame.Limits {
	return frame.Limits{MaxPayloadBytes: c.Limits.MaxPayloadBytes}
}

// FrameOptions bundles layout and limits for frame.NewDecoder/NewEncoder.
func (c Config) FrameOptions() ([]frame.Option, error) {
	layout, err := c.Layout()
	if err != nil {
		return nil, err
	}
	return []frame.Option{frame.WithLayout(layout), frame.WithLimits(c.FrameLimits())}, nil
}
