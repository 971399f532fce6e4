package index

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/review-vocab/pkg/errors"
)

// MagicBytes identifies a serialized vocabulary index.
const (
	MagicBytes    uint32 = 0x56494458
	FormatVersion uint32 = 1
	HeaderSize    int    = 32
)

// Header is the fixed-size frame written before the JSON entry payload.
type Header struct {
	Magic       uint32
	Version     uint32
	EntryCount  uint32
	Checksum    uint32
	PayloadSize int64
	CreatedAt   int64
}

// Encode serializes ix into a framed byte slice: a 32-byte header followed
// by the entries as JSON in id order.
func Encode(ix *Index) ([]byte, error) {
	payload, err := json.Marshal(ix.entries)
	if err != nil {
		return nil, fmt.Errorf("marshaling index entries: %w", err)
	}
	header := Header{
		Magic:       MagicBytes,
		Version:     FormatVersion,
		EntryCount:  uint32(len(ix.entries)),
		Checksum:    crc32.ChecksumIEEE(payload),
		PayloadSize: int64(len(payload)),
		CreatedAt:   time.Now().Unix(),
	}
	buf := make([]byte, HeaderSize, HeaderSize+len(payload))
	binary.LittleEndian.PutUint32(buf[0:4], header.Magic)
	binary.LittleEndian.PutUint32(buf[4:8], header.Version)
	binary.LittleEndian.PutUint32(buf[8:12], header.EntryCount)
	binary.LittleEndian.PutUint32(buf[12:16], header.Checksum)
	binary.LittleEndian.PutUint64(buf[16:24], uint64(header.PayloadSize))
	binary.LittleEndian.PutUint64(buf[24:32], uint64(header.CreatedAt))
	return append(buf, payload...), nil
}

// Decode parses bytes produced by Encode. source names the origin (a file
// path or store key) in the CorruptIndexError returned on any mismatch.
func Decode(data []byte, source string) (*Index, error) {
	if len(data) < HeaderSize {
		return nil, apperrors.Newf(apperrors.ErrCorruptIndex, source,
			"truncated header: %d bytes", len(data))
	}
	header := Header{
		Magic:       binary.LittleEndian.Uint32(data[0:4]),
		Version:     binary.LittleEndian.Uint32(data[4:8]),
		EntryCount:  binary.LittleEndian.Uint32(data[8:12]),
		Checksum:    binary.LittleEndian.Uint32(data[12:16]),
		PayloadSize: int64(binary.LittleEndian.Uint64(data[16:24])),
		CreatedAt:   int64(binary.LittleEndian.Uint64(data[24:32])),
	}
	if header.Magic != MagicBytes {
		return nil, apperrors.Newf(apperrors.ErrCorruptIndex, source,
			"bad magic bytes %x", header.Magic)
	}
	if header.Version != FormatVersion {
		return nil, apperrors.Newf(apperrors.ErrCorruptIndex, source,
			"unsupported format version %d", header.Version)
	}
	payload := data[HeaderSize:]
	if int64(len(payload)) != header.PayloadSize {
		return nil, apperrors.Newf(apperrors.ErrCorruptIndex, source,
			"payload is %d bytes, header says %d", len(payload), header.PayloadSize)
	}
	if sum := crc32.ChecksumIEEE(payload); sum != header.Checksum {
		return nil, apperrors.Newf(apperrors.ErrCorruptIndex, source,
			"checksum mismatch: got %08x, want %08x", sum, header.Checksum)
	}
	var entries []Entry
	if err := json.Unmarshal(payload, &entries); err != nil {
		return nil, apperrors.Newf(apperrors.ErrCorruptIndex, source,
			"parsing entries: %v", err)
	}
	if len(entries) != int(header.EntryCount) {
		return nil, apperrors.Newf(apperrors.ErrCorruptIndex, source,
			"%d entries, header says %d", len(entries), header.EntryCount)
	}
	ix, err := FromEntries(entries)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrCorruptIndex, source, err.Error())
	}
	return ix, nil
}

// Save atomically writes ix to path. It writes to a .tmp file first and
// renames on success.
func Save(ix *Index, path string) error {
	data, err := Encode(ix)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating index directory: %w", err)
	}
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating temp index file: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing index %s: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("syncing index file: %w", err)
	}
	f.Close()
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming index file: %w", err)
	}
	return nil
}

// Load reads an index written by Save.
func Load(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading index %s: %w", path, err)
	}
	return Decode(data, path)
}
