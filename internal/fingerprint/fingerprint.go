// Package fingerprint computes content digests for scanned files. Digests
// are SHA-256 over the full file content, streamed in fixed-size chunks so
// memory use is independent of file size.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"

	"vigil/internal/vigilerr"
)

// chunkSize bounds per-read memory while keeping syscall count low.
const chunkSize = 256 * 1024

// File hashes the file at path. Failures to open or read (locked file,
// vanished mid-read, permission denied) wrap vigilerr.ErrReadFailure so the
// caller can record a skip instead of aborting the scan.
func File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", vigilerr.Wrap(vigilerr.ErrReadFailure, "open", path, err)
	}
	defer f.Close()

	digest, err := Reader(f)
	if err != nil {
		return "", vigilerr.Wrap(vigilerr.ErrReadFailure, "read", path, err)
	}
	return digest, nil
}

// Reader hashes an arbitrary stream. Identical byte content always yields
// an identical digest regardless of where the bytes live.
func Reader(r io.Reader) (string, error) {
	h := sha256.New()
	buf := make([]byte, chunkSize)
	if _, err := io.CopyBuffer(h, r, buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
