// Package archive builds Walk abstraction on top of "archive/zip".
package archive

import (
	"archive/zip"
	"fmt"
	"path"
	"slices"
	"strings"

	"github.com/maruel/natural"
)

// WalkFunc is the type of the function called for each file in archive
// visited by Walk. The archive argument contains path to archive passed to Open.
// The file argument is the zip.File structure for file in archive which satisfies
// match condition. If an error is returned, processing stops.
type WalkFunc func(archive string, file *zip.File) error

// Archive is an open zip file. Since it embeds zip reader it is also an
// fs.FS, so saved pages and files they reference could be read directly from
// it.
type Archive struct {
	*zip.ReadCloser
	path string
}

// Open opens archive for reading. Caller is responsible for closing it.
func Open(archive string) (*Archive, error) {
	r, err := zip.OpenReader(archive)
	if err != nil {
		return nil, err
	}
	return &Archive{ReadCloser: r, path: archive}, nil
}

// Path returns archive location as it was passed to Open.
func (a *Archive) Path() string {
	return a.path
}

// Walk walks the all files in the archive which satisfy match condition,
// calling walkFn for each item. Files are visited in natural order of their
// names, so "page2" comes before "page10". Entries with path traversal
// components ("..") or absolute paths cause an error to prevent Zip Slip
// attacks.
func (a *Archive) Walk(pattern string, walkFn WalkFunc) error {
	files := make([]*zip.File, 0, len(a.File))
	for _, f := range a.File {
		name := f.FileHeader.Name
		if !isSafePath(name) {
			return fmt.Errorf("zip entry %q: unsafe path (absolute or contains path traversal)", name)
		}
		if !f.FileInfo().IsDir() && strings.HasPrefix(name, pattern) {
			files = append(files, f)
		}
	}
	slices.SortStableFunc(files, func(x, y *zip.File) int {
		switch {
		case natural.Less(x.Name, y.Name):
			return -1
		case natural.Less(y.Name, x.Name):
			return 1
		}
		return 0
	})

	for _, f := range files {
		if err := walkFn(a.path, f); err != nil {
			return err
		}
	}
	return nil
}

// isSafePath returns false for paths that could escape the extraction
// directory: absolute paths and those containing ".." components.
func isSafePath(name string) bool {
	if path.IsAbs(name) || strings.HasPrefix(name, "/") || strings.HasPrefix(name, `\`) {
		return false
	}
	for _, part := range strings.Split(name, "/") {
		if part == ".." {
			return false
		}
	}
	return true
}
