package vector

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"math"
	"os"

	"github.com/hyperjump/kotae/internal/storage"
)

const (
	// snapshotMagic identifies index snapshots (ASCII "KVEC").
	snapshotMagic   uint32 = 0x4B564543
	snapshotVersion uint32 = 1
	// magic, version, dimension, count
	headerSize  = 4 + 4 + 4 + 8
	trailerSize = 4
)

// WriteTo writes the snapshot format: header, little-endian float32 payload,
// and a CRC-32 (IEEE) of everything before it.
func (f *FlatIndex) WriteTo(w io.Writer) (int64, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	crc := crc32.NewIEEE()
	mw := io.MultiWriter(w, crc)
	var written int64

	header := make([]byte, headerSize)
	binary.LittleEndian.PutUint32(header[0:4], snapshotMagic)
	binary.LittleEndian.PutUint32(header[4:8], snapshotVersion)
	binary.LittleEndian.PutUint32(header[8:12], uint32(f.dimension))
	binary.LittleEndian.PutUint64(header[12:20], f.size)
	n, err := mw.Write(header)
	written += int64(n)
	if err != nil {
		return written, fmt.Errorf("write header: %w", err)
	}

	buf := make([]byte, 4*1024)
	for off := 0; off < len(f.data); {
		end := off + len(buf)/4
		if end > len(f.data) {
			end = len(f.data)
		}
		chunk := buf[:(end-off)*4]
		for i, v := range f.data[off:end] {
			binary.LittleEndian.PutUint32(chunk[i*4:], math.Float32bits(v))
		}
		n, err := mw.Write(chunk)
		written += int64(n)
		if err != nil {
			return written, fmt.Errorf("write vectors: %w", err)
		}
		off = end
	}

	trailer := make([]byte, trailerSize)
	binary.LittleEndian.PutUint32(trailer, crc.Sum32())
	n, err = w.Write(trailer)
	written += int64(n)
	if err != nil {
		return written, fmt.Errorf("write checksum: %w", err)
	}
	return written, nil
}

// ReadFrom replaces the index contents with the snapshot read from r. The
// index is left untouched when the snapshot is invalid.
func (f *FlatIndex) ReadFrom(r io.Reader) (int64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return int64(len(data)), fmt.Errorf("read snapshot: %w", err)
	}
	read := int64(len(data))
	if len(data) < headerSize+trailerSize {
		return read, ErrTruncated
	}
	if binary.LittleEndian.Uint32(data[0:4]) != snapshotMagic {
		return read, ErrInvalidMagic
	}
	if v := binary.LittleEndian.Uint32(data[4:8]); v != snapshotVersion {
		return read, fmt.Errorf("%w: %d", ErrInvalidVersion, v)
	}
	dim := binary.LittleEndian.Uint32(data[8:12])
	count := binary.LittleEndian.Uint64(data[12:20])
	if dim == 0 && count != 0 {
		return read, fmt.Errorf("snapshot has %d vectors but no dimension", count)
	}

	payload := uint64(len(data) - headerSize - trailerSize)
	if dim != 0 && (count > payload/4/uint64(dim) || count*uint64(dim)*4 != payload) {
		return read, fmt.Errorf("%w: %d vectors of dimension %d in %d bytes", ErrTruncated, count, dim, payload)
	}
	if dim == 0 && payload != 0 {
		return read, fmt.Errorf("%w: unexpected payload of %d bytes", ErrTruncated, payload)
	}

	body := data[:len(data)-trailerSize]
	if crc32.ChecksumIEEE(body) != binary.LittleEndian.Uint32(data[len(data)-trailerSize:]) {
		return read, ErrChecksumMismatch
	}

	values := make([]float32, payload/4)
	raw := body[headerSize:]
	for i := range values {
		values[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.dimension = int(dim)
	f.size = count
	f.data = values
	return read, nil
}

// Save writes the snapshot to path atomically.
func (f *FlatIndex) Save(path string) error {
	return storage.WriteFileAtomic(path, func(w io.Writer) error {
		_, err := f.WriteTo(w)
		return err
	})
}

// Load replaces the index contents with the snapshot at path.
func (f *FlatIndex) Load(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open index snapshot: %w", err)
	}
	defer file.Close()
	if _, err := f.ReadFrom(file); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}
