package catalog

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/pierrec/lz4/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/stashdb/stashdb/pkg/domain"
)

// SaveToFile writes the whole catalog to a single compressed file.
func (c *Catalog) SaveToFile(filename string) error {
	c.mu.RLock()
	data := catalogData{
		Database:    c.dbName,
		Collections: make(map[string]collectionData, len(c.collections)),
	}
	for collName, entry := range c.collections {
		coll := collectionData{
			UUID:    entry.uuid.String(),
			Indexes: make([]indexData, 0, len(entry.indexes)),
		}
		for _, idx := range entry.indexes {
			coll.Indexes = append(coll.Indexes, indexData{
				Spec:      idx.spec,
				Ready:     idx.ready,
				BuildUUID: idx.buildUUID,
			})
		}
		data.Collections[collName] = coll
	}
	c.mu.RUnlock()

	msgpackData, err := msgpack.Marshal(&data)
	if err != nil {
		return fmt.Errorf("failed to encode MessagePack: %w", err)
	}

	compressedData := make([]byte, lz4.CompressBlockBound(len(msgpackData)))
	var hashTable [1 << 16]int
	n, err := lz4.CompressBlock(msgpackData, compressedData, hashTable[:])
	if err != nil {
		return fmt.Errorf("failed to compress data: %w", err)
	}
	// lz4 reports incompressible input as n == 0; store it as-is
	var flags uint8
	if n == 0 {
		flags = flagUncompressed
		compressedData = msgpackData
	} else {
		compressedData = compressedData[:n]
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if err := WriteHeader(file, flags); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := binary.Write(file, binary.LittleEndian, uint64(len(msgpackData))); err != nil {
		return fmt.Errorf("failed to write data length: %w", err)
	}
	if _, err := file.Write(compressedData); err != nil {
		return fmt.Errorf("failed to write compressed data: %w", err)
	}
	return nil
}

// LoadFromFile replaces the catalog contents with the state persisted in
// filename. A missing file is not an error; the catalog starts empty.
func (c *Catalog) LoadFromFile(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	header, err := ReadHeader(file)
	if err != nil {
		return fmt.Errorf("invalid file header: %w", err)
	}

	var uncompressedLen uint64
	if err := binary.Read(file, binary.LittleEndian, &uncompressedLen); err != nil {
		return fmt.Errorf("failed to read data length: %w", err)
	}

	compressedData, err := io.ReadAll(file)
	if err != nil {
		return fmt.Errorf("failed to read compressed data: %w", err)
	}

	decompressedData := compressedData
	if header.Flags&flagUncompressed == 0 {
		decompressedData = make([]byte, uncompressedLen)
		n, err := lz4.UncompressBlock(compressedData, decompressedData)
		if err != nil {
			return fmt.Errorf("failed to decompress data: %w", err)
		}
		decompressedData = decompressedData[:n]
	}

	var data catalogData
	if err := msgpack.Unmarshal(decompressedData, &data); err != nil {
		return fmt.Errorf("failed to decode MessagePack: %w", err)
	}

	collections := make(map[string]*collectionEntry, len(data.Collections))
	byUUID := make(map[uuid.UUID]string, len(data.Collections))
	for collName, coll := range data.Collections {
		id, err := uuid.Parse(coll.UUID)
		if err != nil {
			return fmt.Errorf("collection %s has invalid UUID %q: %w", collName, coll.UUID, err)
		}
		entry := &collectionEntry{
			name: collName,
			uuid: id,
		}
		for _, idx := range coll.Indexes {
			entry.indexes = append(entry.indexes, &indexEntry{
				spec:      domain.Document(idx.Spec),
				ready:     idx.Ready,
				buildUUID: idx.BuildUUID,
			})
		}
		collections[collName] = entry
		byUUID[id] = collName
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if data.Database != "" {
		c.dbName = data.Database
	}
	c.collections = collections
	c.byUUID = byUUID
	return nil
}
