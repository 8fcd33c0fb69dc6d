// Package upload saves multipart file parts to the upload directory.
//
// Files are renamed to a fresh UUID so two applicants uploading
// "aadhar.pdf" never overwrite each other. The returned path is built from
// the URL prefix the static file server is mounted on ("uploads/<uuid>.pdf"),
// never from the directory, so it stays servable wherever Dir lives.
package upload

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// Store writes uploads into Dir and names them under URLPrefix.
type Store struct {
	Dir       string
	URLPrefix string
}

// New makes sure dir exists and returns a Store rooted there.
func New(dir, urlPrefix string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("upload.New: create dir: %w", err)
	}
	return &Store{Dir: dir, URLPrefix: strings.Trim(urlPrefix, "/")}, nil
}

// Save copies the file part to disk and returns its stored path.
func (s *Store) Save(fh *multipart.FileHeader) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("Save: open part: %w", err)
	}
	defer src.Close()

	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if ext == "" {
		// No extension from the client: sniff the content and rewind.
		mt, err := mimetype.DetectReader(src)
		if err != nil {
			return "", fmt.Errorf("Save: detect type: %w", err)
		}
		ext = mt.Extension()
		if _, err := src.Seek(0, io.SeekStart); err != nil {
			return "", fmt.Errorf("Save: rewind part: %w", err)
		}
	}

	name := uuid.NewString() + ext

	dst, err := os.OpenFile(filepath.Join(s.Dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("Save: create file: %w", err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(dst.Name())
		return "", fmt.Errorf("Save: copy: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(dst.Name())
		return "", fmt.Errorf("Save: close file: %w", err)
	}

	return path.Join(s.URLPrefix, name), nil
}

// Remove deletes a file previously returned by Save. Removing a path that
// is already gone is not an error.
func (s *Store) Remove(stored string) error {
	if stored == "" {
		return nil
	}

	err := os.Remove(filepath.Join(s.Dir, path.Base(stored)))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("Remove: %w", err)
	}
	return nil
}
