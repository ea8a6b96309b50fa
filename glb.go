package cascadio

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
)

// GLB 2.0 container constants.
const (
	glbMagic     = 0x46546C67
	glbVersion   = 2
	glbChunkJSON = 0x4E4F534A
	glbChunkBIN  = 0x004E4942

	glbHeaderSize      = 12
	glbChunkHeaderSize = 8
)

// ErrFormat reports a GLB buffer that fails structural validation. Callers
// must fall back to the un-enriched baseline GLB rather than emit a corrupt
// file.
var ErrFormat = errors.New("cascadio: invalid GLB container")

// Glb is a parsed GLB container: the raw JSON chunk payload (possibly
// space-padded, which is valid JSON whitespace) and the optional binary
// chunk payload.
type Glb struct {
	JSON   []byte
	Bin    []byte
	HasBin bool
}

// ParseGlb validates the 12-byte header and the JSON chunk, and captures the
// BIN chunk opportunistically: a missing second chunk or one with an
// unknown type tag means "no binary payload", not an error.
func ParseGlb(data []byte) (*Glb, error) {
	if len(data) < glbHeaderSize {
		return nil, fmt.Errorf("%w: buffer too short for header (%d bytes)", ErrFormat, len(data))
	}
	if magic := binary.LittleEndian.Uint32(data[0:4]); magic != glbMagic {
		return nil, fmt.Errorf("%w: bad magic 0x%08X", ErrFormat, magic)
	}
	if version := binary.LittleEndian.Uint32(data[4:8]); version != glbVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrFormat, version)
	}

	if len(data) < glbHeaderSize+glbChunkHeaderSize {
		return nil, fmt.Errorf("%w: buffer too short for JSON chunk header", ErrFormat)
	}
	jsonLen := binary.LittleEndian.Uint32(data[12:16])
	if tag := binary.LittleEndian.Uint32(data[16:20]); tag != glbChunkJSON {
		return nil, fmt.Errorf("%w: first chunk type 0x%08X is not JSON", ErrFormat, tag)
	}
	jsonEnd := glbHeaderSize + glbChunkHeaderSize + int(jsonLen)
	if len(data) < jsonEnd {
		return nil, fmt.Errorf("%w: truncated JSON chunk (%d of %d bytes)", ErrFormat, len(data)-glbHeaderSize-glbChunkHeaderSize, jsonLen)
	}
	jsonChunk := data[glbHeaderSize+glbChunkHeaderSize : jsonEnd]
	if !json.Valid(jsonChunk) {
		return nil, fmt.Errorf("%w: JSON chunk is not valid JSON", ErrFormat)
	}

	g := &Glb{JSON: jsonChunk}

	if len(data) >= jsonEnd+glbChunkHeaderSize {
		binLen := binary.LittleEndian.Uint32(data[jsonEnd : jsonEnd+4])
		tag := binary.LittleEndian.Uint32(data[jsonEnd+4 : jsonEnd+8])
		binEnd := jsonEnd + glbChunkHeaderSize + int(binLen)
		if tag == glbChunkBIN && len(data) >= binEnd {
			g.Bin = data[jsonEnd+glbChunkHeaderSize : binEnd]
			g.HasBin = true
		}
	}
	return g, nil
}

// Bytes serializes the container. The JSON chunk is right-padded with ASCII
// spaces to a multiple of 4. The binary payload is written as-is: callers
// that append to an existing payload are responsible for re-aligning it
// before serializing. Only the JSON and BIN chunks are represented; chunks
// of any other type seen by ParseGlb are not carried over.
func (g *Glb) Bytes() ([]byte, error) {
	jsonChunk := padChunk(g.JSON, 0x20)
	total := glbHeaderSize + glbChunkHeaderSize + len(jsonChunk)
	if g.HasBin {
		total += glbChunkHeaderSize + len(g.Bin)
	}

	out := make([]byte, 0, total)
	var hdr [4]byte

	put := func(v uint32) {
		binary.LittleEndian.PutUint32(hdr[:], v)
		out = append(out, hdr[:]...)
	}

	put(glbMagic)
	put(glbVersion)
	put(uint32(total))

	put(uint32(len(jsonChunk)))
	put(glbChunkJSON)
	out = append(out, jsonChunk...)

	if g.HasBin {
		put(uint32(len(g.Bin)))
		put(glbChunkBIN)
		out = append(out, g.Bin...)
	}
	return out, nil
}

// Document unmarshals the JSON chunk into a generic document tree.
func (g *Glb) Document() (map[string]any, error) {
	var doc map[string]any
	if err := json.Unmarshal(g.JSON, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	return doc, nil
}

// SetDocument replaces the JSON chunk with the compact serialization of doc.
func (g *Glb) SetDocument(doc map[string]any) error {
	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	g.JSON = b
	return nil
}

func padChunk(b []byte, fill byte) []byte {
	rem := len(b) & 3
	if rem == 0 {
		return b
	}
	padded := make([]byte, len(b), len(b)+4-rem)
	copy(padded, b)
	for i := 0; i < 4-rem; i++ {
		padded = append(padded, fill)
	}
	return padded
}
