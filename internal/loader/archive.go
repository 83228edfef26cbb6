package loader

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
)

// archiveReader abstracts over a zipped archive and an unpacked directory so
// the Loader can treat both identically, per spec.md §4.1 ("Accepts either a
// compressed archive file or an unpacked directory with the same contents").
type archiveReader interface {
	// open returns the contents of name, or (nil, false) if absent.
	open(name string) (io.ReadCloser, bool, error)
	close() error
}

// dirReader reads a canonical dataset archive that has been unpacked into a
// plain directory.
type dirReader struct {
	root string
}

func (d *dirReader) open(name string) (io.ReadCloser, bool, error) {
	f, err := os.Open(filepath.Join(d.root, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return f, true, nil
}

func (d *dirReader) close() error { return nil }

// zipReader reads a canonical dataset archive packed as a zip file.
type zipReader struct {
	zf *zip.ReadCloser
}

func (z *zipReader) open(name string) (io.ReadCloser, bool, error) {
	for _, f := range z.zf.File {
		if f.Name == name || filepath.Base(f.Name) == name {
			rc, err := f.Open()
			if err != nil {
				return nil, false, err
			}
			return rc, true, nil
		}
	}
	return nil, false, nil
}

func (z *zipReader) close() error { return z.zf.Close() }

// openArchive picks a dirReader or zipReader based on whether path is a
// directory or a file.
func openArchive(path string) (archiveReader, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return &dirReader{root: path}, nil
	}
	zf, err := zip.OpenReader(path)
	if err != nil {
		return nil, err
	}
	return &zipReader{zf: zf}, nil
}
