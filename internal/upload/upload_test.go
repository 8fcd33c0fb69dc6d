package upload

import (
	"bytes"
	"mime/multipart"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pngHeader is enough of a PNG for content sniffing.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

// fileHeader builds a real *multipart.FileHeader the way net/http would.
func fileHeader(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))

	return req.MultipartForm.File["file"][0]
}

func TestSave_KeepsClientExtension(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	s, err := New(dir, "/uploads/")
	require.NoError(t, err)

	stored, err := s.Save(fileHeader(t, "Aadhar Card.PDF", []byte("%PDF-1.4 card")))
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(stored, ".pdf"), stored)
	assert.True(t, strings.HasPrefix(stored, "uploads/"), stored)

	data, err := os.ReadFile(filepath.Join(dir, filepath.Base(stored)))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 card", string(data))
}

func TestSave_SniffsExtensionWhenMissing(t *testing.T) {
	s, err := New(t.TempDir(), "/uploads/")
	require.NoError(t, err)

	stored, err := s.Save(fileHeader(t, "signature", pngHeader))
	require.NoError(t, err)
	assert.Equal(t, ".png", filepath.Ext(stored))

	// Content must be intact after sniffing.
	data, err := os.ReadFile(filepath.Join(s.Dir, filepath.Base(stored)))
	require.NoError(t, err)
	assert.Equal(t, pngHeader, data)
}

func TestSave_UniqueNames(t *testing.T) {
	s, err := New(t.TempDir(), "/uploads/")
	require.NoError(t, err)

	a, err := s.Save(fileHeader(t, "sig.png", pngHeader))
	require.NoError(t, err)
	b, err := s.Save(fileHeader(t, "sig.png", pngHeader))
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestRemove(t *testing.T) {
	s, err := New(t.TempDir(), "/uploads/")
	require.NoError(t, err)

	stored, err := s.Save(fileHeader(t, "sig.png", pngHeader))
	require.NoError(t, err)

	require.NoError(t, s.Remove(stored))
	_, err = os.Stat(filepath.Join(s.Dir, filepath.Base(stored)))
	assert.True(t, os.IsNotExist(err))

	// Second removal and empty path are both fine.
	assert.NoError(t, s.Remove(stored))
	assert.NoError(t, s.Remove(""))
}

func TestSave_PathFollowsURLPrefixNotDir(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		want   string
	}{
		{name: "default prefix", prefix: "/uploads/", want: "uploads/"},
		{name: "nested prefix", prefix: "/static/files", want: "static/files/"},
		{name: "root prefix", prefix: "/", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// An absolute directory that looks nothing like the prefix.
			dir := filepath.Join(t.TempDir(), "var", "data")
			s, err := New(dir, tt.prefix)
			require.NoError(t, err)

			stored, err := s.Save(fileHeader(t, "sig.png", pngHeader))
			require.NoError(t, err)

			assert.True(t, strings.HasPrefix(stored, tt.want), stored)
			assert.NotContains(t, stored, filepath.ToSlash(dir))
			assert.Equal(t, tt.want+filepath.Base(stored), stored)

			_, err = os.Stat(filepath.Join(dir, filepath.Base(stored)))
			assert.NoError(t, err)
		})
	}
}
