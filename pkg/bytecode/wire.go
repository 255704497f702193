package bytecode

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// WireMagic identifies serialized chunk data.
const WireMagic = "LUBC"

// WireVersion is the current serialization format version. Readers reject
// any other version.
const WireVersion = 1

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("bytecode: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// wireFile is the top-level serialization envelope.
type wireFile struct {
	Magic   string    `cbor:"magic"`
	Version uint32    `cbor:"version"`
	Main    wireChunk `cbor:"main"`
}

// wireChunk mirrors Chunk with only serializable fields.
type wireChunk struct {
	Name       string              `cbor:"name"`
	Code       []Instruction       `cbor:"code"`
	Constants  []wireValue         `cbor:"constants"`
	ParamCount int                 `cbor:"params"`
	LocalCount int                 `cbor:"locals"`
	Protos     []wireChunk         `cbor:"protos,omitempty"`
	Upvalues   []UpvalueDescriptor `cbor:"upvalues,omitempty"`
	Lines      []int32             `cbor:"lines,omitempty"`
}

// wireValue flattens a constant for serialization. Only nil, booleans,
// numbers, and strings appear in constant pools.
type wireValue struct {
	Type uint8   `cbor:"t"`
	Bool bool    `cbor:"b,omitempty"`
	Num  float64 `cbor:"n,omitempty"`
	Str  string  `cbor:"s,omitempty"`
}

// MarshalChunk serializes a compiled chunk, and its nested prototypes, to
// CBOR bytes. Canonical encoding makes the output deterministic for a
// given chunk.
func MarshalChunk(c *Chunk) ([]byte, error) {
	main, err := toWire(c)
	if err != nil {
		return nil, err
	}
	return cborEncMode.Marshal(&wireFile{
		Magic:   WireMagic,
		Version: WireVersion,
		Main:    main,
	})
}

// UnmarshalChunk deserializes a chunk from CBOR bytes produced by
// MarshalChunk.
func UnmarshalChunk(data []byte) (*Chunk, error) {
	var f wireFile
	if err := cbor.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("bytecode: unmarshal chunk: %w", err)
	}
	if f.Magic != WireMagic {
		return nil, fmt.Errorf("bytecode: bad magic %q", f.Magic)
	}
	if f.Version != WireVersion {
		return nil, fmt.Errorf("bytecode: unsupported format version %d", f.Version)
	}
	return fromWire(&f.Main), nil
}

func toWire(c *Chunk) (wireChunk, error) {
	w := wireChunk{
		Name:       c.Name,
		Code:       c.Code,
		ParamCount: c.ParamCount,
		LocalCount: c.LocalCount,
		Upvalues:   c.Upvalues,
		Lines:      c.Lines,
	}

	w.Constants = make([]wireValue, len(c.Constants))
	for i, v := range c.Constants {
		switch v.Type() {
		case TypeNil:
			w.Constants[i] = wireValue{Type: uint8(TypeNil)}
		case TypeBool:
			w.Constants[i] = wireValue{Type: uint8(TypeBool), Bool: v.Bool()}
		case TypeNumber:
			w.Constants[i] = wireValue{Type: uint8(TypeNumber), Num: v.Number()}
		case TypeString:
			w.Constants[i] = wireValue{Type: uint8(TypeString), Str: v.Str()}
		default:
			return wireChunk{}, fmt.Errorf("bytecode: cannot serialize %s constant", v.Type())
		}
	}

	w.Protos = make([]wireChunk, len(c.Protos))
	for i, proto := range c.Protos {
		sub, err := toWire(proto)
		if err != nil {
			return wireChunk{}, err
		}
		w.Protos[i] = sub
	}
	return w, nil
}

func fromWire(w *wireChunk) *Chunk {
	c := &Chunk{
		Name:       w.Name,
		Code:       w.Code,
		ParamCount: w.ParamCount,
		LocalCount: w.LocalCount,
		Upvalues:   w.Upvalues,
		Lines:      w.Lines,
	}

	c.Constants = make([]Value, len(w.Constants))
	for i, v := range w.Constants {
		switch ValueType(v.Type) {
		case TypeBool:
			c.Constants[i] = BoolValue(v.Bool)
		case TypeNumber:
			c.Constants[i] = NumberValue(v.Num)
		case TypeString:
			c.Constants[i] = StringValue(v.Str)
		default:
			c.Constants[i] = NilValue()
		}
	}

	c.Protos = make([]*Chunk, len(w.Protos))
	for i := range w.Protos {
		c.Protos[i] = fromWire(&w.Protos[i])
	}
	return c
}
