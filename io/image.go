package io

import (
	"encoding/binary"
	"errors"
	"io"
	"io/fs"
)

// IMAGE_WORDS is the largest image, one word per address.
const IMAGE_WORDS = 1 << 16

// WriteImage writes words high byte first.
func WriteImage(w io.Writer, words []uint16) (err error) {
	if len(words) > IMAGE_WORDS {
		err = ErrImageSize
		return
	}

	err = binary.Write(w, binary.BigEndian, words)
	return
}

// ReadImage reads big-endian words until end of input, or until memory is
// full. A trailing odd byte is an error.
func ReadImage(r io.Reader) (words []uint16, err error) {
	data, err := io.ReadAll(io.LimitReader(r, IMAGE_WORDS*2))
	if err != nil {
		return
	}

	if len(data)%2 != 0 {
		err = ErrImagePartial
		return
	}

	words = make([]uint16, len(data)/2)
	for n := range words {
		words[n] = binary.BigEndian.Uint16(data[n*2:])
	}

	return
}

// LoadImage reads the named image from a file system.
func LoadImage(filesys fs.FS, name string) (words []uint16, err error) {
	inf, err := filesys.Open(name)
	if err != nil {
		return
	}
	defer inf.Close()

	words, err = ReadImage(inf)
	return
}

// SaveImage writes the named image to a file system.
func SaveImage(filesys CreateFS, name string, words []uint16) (err error) {
	ouf, err := filesys.Create(name)
	if err != nil {
		return
	}

	err = WriteImage(ouf, words)
	err = errors.Join(err, ouf.Close())

	return
}
