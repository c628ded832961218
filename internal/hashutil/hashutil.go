// Package hashutil streams files through MD5 and BLAKE3 and verifies content
// against a previously captured hex digest.
package hashutil

import (
	"crypto/md5" //nolint:gosec // MD5 is a supported legacy digest, not used for security.
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/zeebo/blake3"

	"github.com/prune-dev/prune/internal/prerr"
)

// streamBufferSize matches the teacher's streaming-read chunk size.
const streamBufferSize = 8192

const (
	md5HexLen    = 32
	blake3HexLen = 64
)

// MD5 streams path through MD5 and returns its lowercase hex digest.
func MD5(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", &prerr.IoErr{Op: "open for md5", Err: err}
	}
	defer f.Close()

	h := md5.New() //nolint:gosec

	if _, err := io.CopyBuffer(h, f, make([]byte, streamBufferSize)); err != nil {
		return "", &prerr.IoErr{Op: "hash md5", Err: err}
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// Blake3 streams path through BLAKE3 and returns its lowercase hex digest.
func Blake3(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", &prerr.IoErr{Op: "open for blake3", Err: err}
	}
	defer f.Close()

	h := blake3.New()

	if _, err := io.CopyBuffer(h, f, make([]byte, streamBufferSize)); err != nil {
		return "", &prerr.IoErr{Op: "hash blake3", Err: err}
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// Compute dispatches to Blake3 — the engine always uses BLAKE3 for freshly
// computed pre/post hashes per spec.
func Compute(path string) (string, error) {
	return Blake3(path)
}

// Verify reports whether path's current content hash equals expected.
// Dispatches on expected's length: 32 hex chars → MD5, 64 → BLAKE3.
// Returns false (no error) if path does not exist.
func Verify(path, expected string) (bool, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}

		return false, &prerr.IoErr{Op: "stat for verify", Err: err}
	}

	var (
		actual string
		err    error
	)

	switch len(expected) {
	case md5HexLen:
		actual, err = MD5(path)
	case blake3HexLen:
		actual, err = Blake3(path)
	default:
		return false, fmt.Errorf("hashutil: invalid hash length %d for %q", len(expected), expected)
	}

	if err != nil {
		return false, err
	}

	return strings.EqualFold(actual, expected), nil
}

// VerifySourceUnchanged re-hashes path and compares to expected, returning
// a *prerr.SourceChangedError (carrying the freshly computed hash) on
// mismatch. Used immediately before a destructive operation.
func VerifySourceUnchanged(path, expected string) error {
	ok, err := Verify(path, expected)
	if err != nil {
		return err
	}

	if ok {
		return nil
	}

	actual, hashErr := recomputeForMismatch(path, expected)
	if hashErr != nil {
		actual = "<unreadable>"
	}

	return &prerr.SourceChangedError{Path: path, Expected: expected, Actual: actual}
}

// VerifyDestination re-hashes path (the copy destination) and compares to
// expected, returning *prerr.DestinationVerificationError on mismatch.
func VerifyDestination(path, expected string) error {
	ok, err := Verify(path, expected)
	if err != nil {
		return err
	}

	if !ok {
		return &prerr.DestinationVerificationError{Path: path}
	}

	return nil
}

func recomputeForMismatch(path, expected string) (string, error) {
	if len(expected) == md5HexLen {
		return MD5(path)
	}

	return Blake3(path)
}
