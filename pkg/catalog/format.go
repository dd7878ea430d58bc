package catalog

import (
	"encoding/binary"
	"fmt"
	"io"
)

const (
	// Magic bytes to identify our catalog file format
	MagicBytes = "SDBC"
	// Current version
	FormatVersion = 1
	// File extension for persisted catalogs
	FileExtension = ".sdbc"
)

// flagUncompressed marks a payload stored as-is because lz4 could not
// shrink it.
const flagUncompressed uint8 = 1

// FileHeader represents the header of a persisted catalog file
type FileHeader struct {
	Magic    [4]byte // "SDBC"
	Version  uint8   // Format version
	Flags    uint8   // Payload flags
	Reserved [2]byte // Reserved for future use
}

// WriteHeader writes the file header to the given writer
func WriteHeader(w io.Writer, flags uint8) error {
	header := FileHeader{
		Magic:    [4]byte{'S', 'D', 'B', 'C'},
		Version:  FormatVersion,
		Flags:    flags,
		Reserved: [2]byte{0, 0},
	}
	return binary.Write(w, binary.LittleEndian, header)
}

// ReadHeader reads and validates the file header
func ReadHeader(r io.Reader) (*FileHeader, error) {
	var header FileHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	if string(header.Magic[:]) != MagicBytes {
		return nil, fmt.Errorf("invalid file format: expected %s, got %s", MagicBytes, string(header.Magic[:]))
	}

	if header.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported file version: %d", header.Version)
	}

	return &header, nil
}

// catalogData is the on-disk shape of the catalog
type catalogData struct {
	Database    string                    `msgpack:"database"`
	Collections map[string]collectionData `msgpack:"collections"`
}

type collectionData struct {
	UUID    string      `msgpack:"uuid"`
	Indexes []indexData `msgpack:"indexes"`
}

type indexData struct {
	Spec      map[string]interface{} `msgpack:"spec"`
	Ready     bool                   `msgpack:"ready"`
	BuildUUID string                 `msgpack:"build_uuid,omitempty"`
}
