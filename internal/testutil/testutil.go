// Package testutil provides testing utilities for UMVM tests.
package testutil

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

// TempImage writes words as a big-endian program image and returns its
// path. The file is cleaned up when the test finishes.
func TempImage(t *testing.T, words []uint32) string {
	t.Helper()
	buf := make([]byte, 4*len(words))
	for i, w := range words {
		binary.BigEndian.PutUint32(buf[i*4:], w)
	}
	path := filepath.Join(t.TempDir(), "test.um")
	if err := os.WriteFile(path, buf, 0644); err != nil {
		t.Fatalf("failed to write temp image: %v", err)
	}
	return path
}

// TempSource writes assembly source to a temp file and returns its path.
func TempSource(t *testing.T, source string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.uma")
	if err := os.WriteFile(path, []byte(source), 0644); err != nil {
		t.Fatalf("failed to write temp source: %v", err)
	}
	return path
}

// HelloWords returns a program that prints 'A' and halts.
func HelloWords() []uint32 {
	return []uint32{0xD0000041, 0xA0000000, 0x70000000}
}

// HelloSource returns the assembly form of HelloWords.
func HelloSource() string {
	return "ldi 0, 'A'\nout 0\nhlt\n"
}
