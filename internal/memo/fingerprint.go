// Package memo provides file fingerprints and a scoped cache of values
// derived from input files.
package memo

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/zeebo/xxh3"
)

// Fingerprint holds the identity of an input file at the time it was read.
type Fingerprint struct {
	Path    string
	Size    int64
	ModTime time.Time
	Hash    uint64 // xxh3 of the file content
}

// StatFile creates a Fingerprint from an on-disk file.
func StatFile(path string) (Fingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Fingerprint{}, err
	}

	f, err := os.Open(path)
	if err != nil {
		return Fingerprint{}, err
	}
	defer f.Close()

	h := xxh3.New()
	if _, err := io.Copy(h, f); err != nil {
		return Fingerprint{}, fmt.Errorf("hash %s: %w", path, err)
	}

	return Fingerprint{
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
		Hash:    h.Sum64(),
	}, nil
}

// Same reports whether two fingerprints describe the same file content.
func (fp Fingerprint) Same(other Fingerprint) bool {
	return fp.Path == other.Path &&
		fp.Size == other.Size &&
		fp.ModTime.Equal(other.ModTime) &&
		fp.Hash == other.Hash
}
