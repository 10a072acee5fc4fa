package fileutil

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
)

// HashingWriter forwards writes to an underlying writer while tracking the
// SHA-256 digest and byte count of everything written.
type HashingWriter struct {
	w      io.Writer
	hasher hash.Hash
	n      int64
}

// NewHashingWriter wraps w.
func NewHashingWriter(w io.Writer) *HashingWriter {
	return &HashingWriter{w: w, hasher: sha256.New()}
}

func (h *HashingWriter) Write(p []byte) (int, error) {
	n, err := h.w.Write(p)
	if n > 0 {
		h.hasher.Write(p[:n])
		h.n += int64(n)
	}
	return n, err
}

// Sum returns the hex-encoded SHA-256 of the bytes written so far.
func (h *HashingWriter) Sum() string {
	return hex.EncodeToString(h.hasher.Sum(nil))
}

// Size returns the number of bytes written so far.
func (h *HashingWriter) Size() int64 {
	return h.n
}

// HashReader streams r and returns its hex SHA-256 and size.
func HashReader(r io.Reader) (string, int64, error) {
	hw := NewHashingWriter(io.Discard)
	if _, err := io.Copy(hw, r); err != nil {
		return "", 0, err
	}
	return hw.Sum(), hw.Size(), nil
}

// HashFile returns the hex SHA-256 and size of the file at path.
func HashFile(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()
	sum, size, err := HashReader(f)
	if err != nil {
		return "", 0, fmt.Errorf("hash %s: %w", path, err)
	}
	return sum, size, nil
}

// SyncDir flushes directory metadata so a completed rename survives a crash.
func SyncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
}
