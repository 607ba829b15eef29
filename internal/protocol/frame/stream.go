package frame

import (
	"errors"
	"fmt"

	"github.com/danmuck/schemawire/internal/observability"
	"github.com/danmuck/schemawire/internal/protocol"
	"github.com/danmuck/schemawire/internal/protocol/codec"
	"github.com/danmuck/schemawire/internal/protocol/registry"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type config struct {
	layout Layout
	codec  *codec.Codec
	limits Limits
	logger *zerolog.Logger
}

type Option func(*config)

func WithLayout(layout Layout) Option {
	return func(c *config) { c.layout = layout }
}

func WithCodec(cd *codec.Codec) Option {
	return func(c *config) {
		if cd != nil {
			c.codec = cd
		}
	}
}

func WithLimits(limits Limits) Option {
	return func(c *config) { c.limits = limits }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *config) { c.logger = &logger }
}

func newConfig(opts []Option) config {
	c := config{
		layout: DefaultLayout(),
		codec:  codec.Default(),
		limits: DefaultLimits(),
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

func (c *config) log() *zerolog.Logger {
	if c.logger != nil {
		return c.logger
	}
	return &log.Logger
}

// Decoder turns a complete buffer of concatenated frames into messages. It
// holds no per-call state and is safe for concurrent use.
type Decoder struct {
	registry *registry.Registry
	config
}

func NewDecoder(reg *registry.Registry, opts ...Option) *Decoder {
	return &Decoder{registry: reg, config: newConfig(opts)}
}

// DecodeStream decodes every frame in buf with layout.
func DecodeStream(reg *registry.Registry, buf []byte, layout Layout) ([]Message, error) {
	return NewDecoder(reg, WithLayout(layout)).DecodeStream(buf)
}

// DecodeStream decodes frames from offset 0 until the cursor reaches
// len(buf). Any failure aborts the whole call; no partial list is returned.
func (d *Decoder) DecodeStream(buf []byte) ([]Message, error) {
	var msgs []Message
	cursor := 0
	for cursor < len(buf) {
		msg, n, err := d.DecodeFrame(buf, cursor)
		if err != nil {
			observability.RecordStreamError(errorReason(err))
			d.log().Error().Err(err).Int("offset", cursor).Int("frames", len(msgs)).Msg("frame.DecodeStream failed")
			return nil, err
		}
		msgs = append(msgs, msg)
		cursor += n
	}
	d.log().Debug().Int("frames", len(msgs)).Int("bytes", cursor).Msg("frame.DecodeStream ok")
	return msgs, nil
}

// DecodeFrame decodes the single frame starting at off and returns it with
// the number of bytes it occupied.
func (d *Decoder) DecodeFrame(buf []byte, off int) (Message, int, error) {
	layout := d.layout
	header, hn, err := d.codec.Deserialize(layout.Struct, buf, off)
	if err != nil {
		return Message{}, 0, fmt.Errorf("frame header at %d: %w", off, err)
	}
	rawID, ok := headerUint(header[layout.IDField])
	if !ok || rawID > uint64(^uint32(0)) {
		return Message{}, 0, fmt.Errorf("%w: header field %q at %d", protocol.ErrValueType, layout.IDField, off)
	}
	id := uint32(rawID)
	s, ok := d.registry.ByID(id)
	if !ok {
		return Message{}, 0, &UnknownMessageIDError{ID: id, Offset: off}
	}

	payloadOff := off + hn
	declared, hasSize := uint64(0), layout.SizeField != ""
	if hasSize {
		declared, ok = headerUint(header[layout.SizeField])
		if !ok {
			return Message{}, 0, fmt.Errorf("%w: header field %q at %d", protocol.ErrValueType, layout.SizeField, off)
		}
		if declared > d.limits.MaxPayloadBytes {
			return Message{}, 0, fmt.Errorf("%w: %s frame at %d declares %d bytes, limit %d",
				protocol.ErrPayloadTooLarge, s.Name(), off, declared, d.limits.MaxPayloadBytes)
		}
		if err := checkPayload(buf, payloadOff, declared); err != nil {
			return Message{}, 0, fmt.Errorf("%s payload at %d: %w", s.Name(), payloadOff, err)
		}
	}

	payload, pn, err := d.codec.Deserialize(s, buf, payloadOff)
	if err != nil {
		return Message{}, 0, fmt.Errorf("%s payload at %d: %w", s.Name(), payloadOff, err)
	}
	if hasSize && uint64(pn) != declared {
		return Message{}, 0, fmt.Errorf("%w: %s frame at %d declares %d payload bytes, decoded %d",
			protocol.ErrSizeMismatch, s.Name(), off, declared, pn)
	}

	observability.RecordFrameDecoded(s.Name(), hn+pn, pn)
	d.log().Debug().Uint32("id", id).Str("message", s.Name()).Int("offset", off).Int("bytes", hn+pn).Msg("frame decoded")
	return Message{
		ID:      id,
		Name:    s.Name(),
		Offset:  off,
		Size:    hn + pn,
		Header:  header,
		Payload: payload,
	}, hn + pn, nil
}

func errorReason(err error) string {
	switch {
	case errors.Is(err, protocol.ErrUnknownMessageID):
		return "unknown_id"
	case errors.Is(err, protocol.ErrPayloadTooLarge):
		return "too_large"
	case errors.Is(err, protocol.ErrSizeMismatch):
		return "size_mismatch"
	case errors.Is(err, protocol.ErrOutOfRange):
		return "truncated"
	default:
		return "invalid"
	}
}

// Encoder produces frames for registered message schemas.
type Encoder struct {
	registry *registry.Registry
	config
}

func NewEncoder(reg *registry.Registry, opts ...Option) *Encoder {
	return &Encoder{registry: reg, config: newConfig(opts)}
}

// AppendFrame serializes payload with the schema registered under id,
// serializes header with the id and size fields filled in, and appends both
// to dst. header is not modified.
func (e *Encoder) AppendFrame(dst []byte, header codec.Record, id uint32, payload codec.Record) ([]byte, error) {
	s, ok := e.registry.ByID(id)
	if !ok {
		return nil, &UnknownMessageIDError{ID: id, Offset: len(dst)}
	}
	body, err := e.codec.Serialize(s, payload)
	if err != nil {
		return nil, err
	}
	if uint64(len(body)) > e.limits.MaxPayloadBytes {
		return nil, fmt.Errorf("%w: %s payload is %d bytes, limit %d",
			protocol.ErrPayloadTooLarge, s.Name(), len(body), e.limits.MaxPayloadBytes)
	}

	hdr := make(codec.Record, len(header)+2)
	for k, v := range header {
		hdr[k] = v
	}
	hdr[e.layout.IDField] = id
	if e.layout.SizeField != "" {
		hdr[e.layout.SizeField] = len(body)
	}
	head, err := e.codec.Serialize(e.layout.Struct, hdr)
	if err != nil {
		return nil, fmt.Errorf("frame header for %s: %w", s.Name(), err)
	}

	dst = append(dst, head...)
	dst = append(dst, body...)
	observability.RecordFrameEncoded(s.Name(), len(head)+len(body))
	return dst, nil
}

// AppendNamed is AppendFrame addressed by schema name. The schema must own
// its id; a schema that lost its id to an earlier registrant cannot be framed.
func (e *Encoder) AppendNamed(dst []byte, header codec.Record, name string, payload codec.Record) ([]byte, error) {
	s, ok := e.registry.ByName(name)
	if !ok {
		return nil, fmt.Errorf("%w: no schema named %q", protocol.ErrUnknownMessageID, name)
	}
	if s.ID() == 0 {
		return nil, fmt.Errorf("%w: schema %q has no message id", protocol.ErrUnknownMessageID, name)
	}
	if owner, ok := e.registry.ByID(s.ID()); !ok || owner != s {
		return nil, fmt.Errorf("%w: schema %q does not own id %d", protocol.ErrDuplicateMessageID, name, s.ID())
	}
	return e.AppendFrame(dst, header, s.ID(), payload)
}
