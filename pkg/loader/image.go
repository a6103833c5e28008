// Package loader reads and writes UMVM program images.
//
// An image is a flat binary stream of 32-bit instruction words, each
// stored as a big-endian 4-byte group: bytes b0 b1 b2 b3 encode the
// word (b0<<24) | (b1<<16) | (b2<<8) | b3.
package loader

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// ReadImage decodes a program image from r. A trailing group of fewer
// than 4 bytes is ignored.
func ReadImage(r io.Reader) ([]uint32, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading image: %w", err)
	}
	words := make([]uint32, len(data)/4)
	for i := range words {
		words[i] = binary.BigEndian.Uint32(data[i*4:])
	}
	return words, nil
}

// LoadFile reads the program image stored at path.
func LoadFile(path string) ([]uint32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadImage(f)
}

// WriteImage encodes words to w in big-endian order.
func WriteImage(w io.Writer, words []uint32) error {
	buf := make([]byte, 4*len(words))
	for i, word := range words {
		binary.BigEndian.PutUint32(buf[i*4:], word)
	}
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("writing image: %w", err)
	}
	return nil
}

// WriteFile stores words as a program image at path.
func WriteFile(path string, words []uint32) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteImage(f, words); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
