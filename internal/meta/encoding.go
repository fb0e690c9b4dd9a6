package meta

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"io"
)

const exportVersion = 1

// EncodeSet serializes manipulations for sharing as text.
// The payload is a version byte, a uvarint count and the 16-byte encodings in
// identifier order, gzip-compressed and base64-encoded.
func EncodeSet(ms []Manipulation) (string, error) {
	sorted := make([]Manipulation, len(ms))
	copy(sorted, ms)
	SortManipulations(sorted)

	var raw bytes.Buffer
	raw.WriteByte(exportVersion)
	var n [binary.MaxVarintLen64]byte
	raw.Write(n[:binary.PutUvarint(n[:], uint64(len(sorted)))])
	for _, m := range sorted {
		raw.Write(m.Bytes())
	}

	var zipped bytes.Buffer
	zw := gzip.NewWriter(&zipped)
	if _, err := zw.Write(raw.Bytes()); err != nil {
		return "", fmt.Errorf("compressing manipulations: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("compressing manipulations: %w", err)
	}

	return base64.StdEncoding.EncodeToString(zipped.Bytes()), nil
}

// DecodeSet parses text produced by EncodeSet. Every entry is validated.
func DecodeSet(text string) ([]Manipulation, error) {
	zipped, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		return nil, fmt.Errorf("decoding base64: %w", err)
	}

	zr, err := gzip.NewReader(bytes.NewReader(zipped))
	if err != nil {
		return nil, fmt.Errorf("decompressing manipulations: %w", err)
	}
	defer zr.Close()

	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("decompressing manipulations: %w", err)
	}

	r := bytes.NewReader(raw)
	version, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("reading version: %w", err)
	}
	if version != exportVersion {
		return nil, fmt.Errorf("unsupported manipulation export version %d", version)
	}

	count, err := binary.ReadUvarint(r)
	if err != nil {
		return nil, fmt.Errorf("reading count: %w", err)
	}
	if count > uint64(r.Len())/ManipulationSize || count*ManipulationSize != uint64(r.Len()) {
		return nil, fmt.Errorf("manipulation export truncated: %d entries in %d bytes", count, r.Len())
	}

	out := make([]Manipulation, 0, count)
	buf := make([]byte, ManipulationSize)
	for i := uint64(0); i < count; i++ {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, fmt.Errorf("reading entry %d: %w", i, err)
		}
		m, err := ParseManipulation(buf)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		out = append(out, m)
	}

	return out, nil
}
