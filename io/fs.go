package io

import (
	"io"
	"os"
	"path/filepath"
)

// CreateFS defines a file system interface that supports creating files,
// the write side of fs.FS.
type CreateFS interface {
	// Create creates a new file for writing.
	Create(name string) (file io.WriteCloser, err error)
}

// DirFS is a CreateFS rooted at a host directory.
type DirFS string

// Create creates or truncates the named file below the root directory.
func (dir DirFS) Create(name string) (file io.WriteCloser, err error) {
	file, err = os.Create(filepath.Join(string(dir), filepath.FromSlash(name)))
	return
}
