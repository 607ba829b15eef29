package codec

import (
	"fmt"

	"github.com/danmuck/schemawire/internal/protocol"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
)

// TextCodec converts between strings and the raw bytes carried by String
// fields.
type TextCodec interface {
	Encode(text string) ([]byte, error)
	Decode(raw []byte) (string, error)
}

// UTF8 is the default text codec: UTF-8, no BOM, no normalization. Invalid
// sequences are replaced with U+FFFD in both directions.
var UTF8 TextCodec = xtextCodec{enc: unicode.UTF8}

type xtextCodec struct {
	enc encoding.Encoding
}

func (c xtextCodec) Encode(text string) ([]byte, error) {
	raw, err := c.enc.NewEncoder().Bytes([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", protocol.ErrInvalidText, err)
	}
	return raw, nil
}

func (c xtextCodec) Decode(raw []byte) (string, error) {
	out, err := c.enc.NewDecoder().Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", protocol.ErrInvalidText, err)
	}
	return string(out), nil
}
