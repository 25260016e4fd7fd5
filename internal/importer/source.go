package importer

import (
	"io"
	"os"
)

// FileSource is a spooled CSV file on local disk. Cleanup removes the file.
type FileSource struct {
	Path string
}

// NewFileSource creates a source over a spooled file path.
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

func (s *FileSource) Open() (io.ReadCloser, error) {
	return os.Open(s.Path)
}

func (s *FileSource) Cleanup() error {
	err := os.Remove(s.Path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
