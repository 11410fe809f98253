package marshal

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/ATSOTECK/adder/internal/runtime"
)

// pyc header layout (PEP 552): magic, bit field, then either mtime+size or
// a source hash.
const pycHeaderSize = 16

// Magic numbers accepted as the 3.8 bytecode dialect
var acceptedMagics = map[uint16]string{
	3400: "3.8a1",
	3401: "3.8a1",
	3410: "3.8a2",
	3411: "3.8b2",
	3412: "3.8b2",
	3413: "3.8b4",
}

// Header is the decoded pyc file header
type Header struct {
	Magic      uint16
	Version    string
	HashBased  bool
	CheckedSrc bool
	Mtime      uint32
	SourceSize uint32
}

// ReadHeader validates and decodes a pyc header
func ReadHeader(data []byte) (*Header, error) {
	if len(data) < pycHeaderSize {
		return nil, fmt.Errorf("pyc: file too short (%d bytes)", len(data))
	}
	if data[2] != '\r' || data[3] != '\n' {
		return nil, fmt.Errorf("pyc: bad magic trailer %q", data[2:4])
	}
	magic := binary.LittleEndian.Uint16(data[0:2])
	version, ok := acceptedMagics[magic]
	if !ok {
		return nil, fmt.Errorf("pyc: unsupported magic %d (want a CPython 3.8 pyc)", magic)
	}
	bits := binary.LittleEndian.Uint32(data[4:8])
	h := &Header{
		Magic:      magic,
		Version:    version,
		HashBased:  bits&1 != 0,
		CheckedSrc: bits&2 != 0,
	}
	if !h.HashBased {
		h.Mtime = binary.LittleEndian.Uint32(data[8:12])
		h.SourceSize = binary.LittleEndian.Uint32(data[12:16])
	}
	return h, nil
}

// LoadPyc decodes a whole pyc image into its module code object
func LoadPyc(data []byte) (*runtime.CodeObject, *Header, error) {
	h, err := ReadHeader(data)
	if err != nil {
		return nil, nil, err
	}
	v, err := NewReader(data[pycHeaderSize:]).ReadObject()
	if err != nil {
		return nil, nil, err
	}
	code, ok := v.(*runtime.CodeObject)
	if !ok {
		return nil, nil, fmt.Errorf("pyc: top-level object is %s, expected a code object", runtime.TypeName(v))
	}
	return code, h, nil
}

// LoadFile reads and decodes a pyc file from disk
func LoadFile(path string) (*runtime.CodeObject, *Header, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	return LoadPyc(data)
}
