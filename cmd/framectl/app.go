package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/danmuck/schemawire/internal/config"
	"github.com/danmuck/schemawire/internal/observability"
	"github.com/danmuck/schemawire/internal/protocol/codec"
	"github.com/danmuck/schemawire/internal/protocol/frame"
	"github.com/danmuck/schemawire/internal/protocol/registry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/rs/zerolog"
)

type app struct {
	registry *registry.Registry
	decoder  *frame.Decoder
	encoder  *frame.Encoder
	logger   zerolog.Logger
}

// frameLine is one JSON line of decode output and encode input.
type frameLine struct {
	Offset  int          `json:"offset"`
	ID      uint32       `json:"id,omitempty"`
	Message string       `json:"message"`
	Size    int          `json:"size,omitempty"`
	Header  codec.Record `json:"header,omitempty"`
	Payload codec.Record `json:"payload"`
}

func load(path string, logger zerolog.Logger) (*app, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return newApp(cfg, logger)
}

func newApp(cfg config.Config, logger zerolog.Logger) (*app, error) {
	reg, err := cfg.Registry(registry.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	for _, w := range reg.Warnings() {
		logger.Warn().Err(w).Msg("schema registry warning")
	}
	opts, err := cfg.FrameOptions()
	if err != nil {
		return nil, err
	}
	opts = append(opts, frame.WithLogger(logger))
	return &app{
		registry: reg,
		decoder:  frame.NewDecoder(reg, opts...),
		encoder:  frame.NewEncoder(reg, opts...),
		logger:   logger,
	}, nil
}

func (a *app) run(mode string, in io.Reader, out io.Writer) error {
	switch mode {
	case "decode":
		return a.decode(in, out)
	case "encode":
		return a.encode(in, out)
	case "schemas":
		return a.schemas(out)
	default:
		return fmt.Errorf("unknown mode: %s", mode)
	}
}

// decode reads a raw frame capture and writes one JSON line per frame.
func (a *app) decode(in io.Reader, out io.Writer) error {
	buf, err := io.ReadAll(in)
	if err != nil {
		return err
	}
	msgs, err := a.decoder.DecodeStream(buf)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	for _, m := range msgs {
		line := frameLine{
			Offset:  m.Offset,
			ID:      m.ID,
			Message: m.Name,
			Size:    m.Size,
			Header:  m.Header,
			Payload: m.Payload,
		}
		if err := enc.Encode(line); err != nil {
			return err
		}
	}
	a.logger.Info().Int("frames", len(msgs)).Int("bytes", len(buf)).Msg("decoded capture")
	return nil
}

// encode reads JSON lines naming a message and writes the framed bytes.
func (a *app) encode(in io.Reader, out io.Writer) error {
	dec := json.NewDecoder(bufio.NewReader(in))
	dec.UseNumber()
	var stream []byte
	frames := 0
	for {
		var line frameLine
		if err := dec.Decode(&line); err == io.EOF {
			break
		} else if err != nil {
			return fmt.Errorf("frame %d: %w", frames, err)
		}
		var err error
		if line.Message != "" {
			stream, err = a.encoder.AppendNamed(stream, line.Header, line.Message, line.Payload)
		} else {
			stream, err = a.encoder.AppendFrame(stream, line.Header, line.ID, line.Payload)
		}
		if err != nil {
			return fmt.Errorf("frame %d: %w", frames, err)
		}
		frames++
	}
	if _, err := io.Copy(out, bytes.NewReader(stream)); err != nil {
		return err
	}
	a.logger.Info().Int("frames", frames).Int("bytes", len(stream)).Msg("encoded capture")
	return nil
}

// schemas prints the compiled registry, one schema per line.
func (a *app) schemas(out io.Writer) error {
	for _, name := range a.registry.Names() {
		s, _ := a.registry.ByName(name)
		if _, err := fmt.Fprintln(out, s.String()); err != nil {
			return err
		}
	}
	return nil
}

func dumpMetrics(w io.Writer) error {
	observability.RegisterMetrics()
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
