package codec

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/hupe1980/relate/internal/hash"
)

// Magic prefixes every record envelope.
const Magic = "RLR1"

// FormatError reports a record envelope that cannot be decoded.
type FormatError struct {
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("codec: %s: %v", e.Reason, e.Err)
	}
	return "codec: " + e.Reason
}

func (e *FormatError) Unwrap() error { return e.Err }

// ErrFormat is matched by every *FormatError.
var ErrFormat = errors.New("codec: invalid record format")

// Is reports whether target is ErrFormat.
func (e *FormatError) Is(target error) bool { return target == ErrFormat }

// Envelope configures how records are sealed.
type Envelope struct {
	Codec       Codec
	Compression Compression
}

// Seal encodes v and wraps it in a self-describing envelope:
//
//	magic[4] | nameLen u8 | name | compression u8 | crc32c u32 | bodyLen u32 | body
//
// The checksum covers nameLen through compression and the body.
func (e Envelope) Seal(v any) ([]byte, error) {
	c := e.Codec
	if c == nil {
		c = Default
	}

	raw, err := c.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("codec %s marshal: %w", c.Name(), err)
	}

	body, err := Compress(e.Compression, raw)
	if err != nil {
		return nil, err
	}

	name := c.Name()
	if len(name) > 255 {
		return nil, fmt.Errorf("codec: name %q too long", name)
	}

	out := make([]byte, 0, len(Magic)+1+len(name)+1+4+4+len(body))
	out = append(out, Magic...)
	out = append(out, byte(len(name)))
	out = append(out, name...)
	out = append(out, byte(e.Compression))
	sum := hash.Extend(hash.CRC32C(out[len(Magic):]), body)
	out = binary.LittleEndian.AppendUint32(out, sum)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(body)))
	out = append(out, body...)
	return out, nil
}

// Open decodes a sealed record into v, selecting the codec by the name stored
// in the header. All failures are *FormatError.
func Open(data []byte, v any) error {
	if len(data) < len(Magic)+1 || string(data[:len(Magic)]) != Magic {
		return &FormatError{Reason: "bad magic"}
	}
	p := data[len(Magic):]

	nameLen := int(p[0])
	if len(p) < 1+nameLen+1+8 {
		return &FormatError{Reason: "truncated header"}
	}
	header := p[:1+nameLen+1]
	name := string(p[1 : 1+nameLen])
	p = p[1+nameLen:]

	comp := Compression(p[0])
	sum := binary.LittleEndian.Uint32(p[1:])
	bodyLen := binary.LittleEndian.Uint32(p[5:])
	p = p[9:]

	if uint32(len(p)) != bodyLen {
		return &FormatError{Reason: fmt.Sprintf("body length %d, header says %d", len(p), bodyLen)}
	}
	if !hash.Verify(sum, header, p) {
		return &FormatError{Reason: "checksum mismatch"}
	}

	c, ok := ByName(name)
	if !ok {
		return &FormatError{Reason: fmt.Sprintf("unknown codec %q", name)}
	}

	raw, err := Decompress(comp, p)
	if err != nil {
		return &FormatError{Reason: "decompress", Err: err}
	}
	if err := c.Unmarshal(raw, v); err != nil {
		return &FormatError{Reason: "unmarshal", Err: err}
	}
	return nil
}
