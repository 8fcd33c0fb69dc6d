package main

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aanand-mishra/registration-api/internal/config"
	"github.com/aanand-mishra/registration-api/internal/storage/sqlite"
	"github.com/aanand-mishra/registration-api/internal/upload"
)

func newTestServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()

	dir := filepath.Join(t.TempDir(), "uploads")

	cfg := &config.Config{
		StoragePath: ":memory:",
		Upload:      config.Upload{Dir: dir, URLPrefix: "/uploads/", MaxMemory: 1 << 20},
		CORS:        config.CORS{AllowedOrigins: []string{"*"}},
	}

	store, err := sqlite.New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	files, err := upload.New(cfg.Upload.Dir, cfg.Upload.URLPrefix)
	require.NoError(t, err)

	srv := httptest.NewServer(newRouter(cfg, store, files))
	t.Cleanup(srv.Close)

	return srv, dir
}

func TestRouter_Welcome(t *testing.T) {
	srv, _ := newTestServer(t)

	res, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer res.Body.Close()

	body, _ := io.ReadAll(res.Body)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, string(body), "Course Registration API")
}

func TestRouter_ListRoute(t *testing.T) {
	srv, _ := newTestServer(t)

	res, err := http.Get(srv.URL + "/api/registration")
	require.NoError(t, err)
	defer res.Body.Close()

	body, _ := io.ReadAll(res.Body)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.JSONEq(t, `{"success":true,"registrations":[]}`, string(body))
}

func TestRouter_ServesUploads(t *testing.T) {
	srv, dir := newTestServer(t)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "sig.png"), []byte("png-bytes"), 0o644))

	res, err := http.Get(srv.URL + "/uploads/sig.png")
	require.NoError(t, err)
	defer res.Body.Close()

	body, _ := io.ReadAll(res.Body)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "png-bytes", string(body))
}

func TestRouter_UploadsDirectoryNotListed(t *testing.T) {
	srv, dir := newTestServer(t)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "sig.png"), []byte("png-bytes"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o755))

	for _, p := range []string{"/uploads/", "/uploads/nested/"} {
		res, err := http.Get(srv.URL + p)
		require.NoError(t, err)
		body, _ := io.ReadAll(res.Body)
		res.Body.Close()

		assert.Equal(t, http.StatusNotFound, res.StatusCode, p)
		assert.NotContains(t, string(body), "sig.png", p)
	}
}

func TestRouter_StoredUploadPathIsServable(t *testing.T) {
	srv, _ := newTestServer(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for key, v := range map[string]string{"firstName": "Asha", "lastName": "Rao", "email": "asha@example.com"} {
		require.NoError(t, mw.WriteField(key, v))
	}
	for field, content := range map[string]string{"aadharFile": "%PDF-1.4 aadhar", "signatureFile": "\x89PNG\r\n\x1a\nsig"} {
		fw, err := mw.CreateFormFile(field, field+".bin")
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	res, err := http.Post(srv.URL+"/api/registration", mw.FormDataContentType(), &body)
	require.NoError(t, err)
	res.Body.Close()
	require.Equal(t, http.StatusCreated, res.StatusCode)

	res, err = http.Get(srv.URL + "/api/registration")
	require.NoError(t, err)
	defer res.Body.Close()

	var list struct {
		Registrations []struct {
			AadharFile string `json:"aadharFile"`
		} `json:"registrations"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&list))
	require.Len(t, list.Registrations, 1)

	file, err := http.Get(srv.URL + "/" + list.Registrations[0].AadharFile)
	require.NoError(t, err)
	defer file.Body.Close()

	data, _ := io.ReadAll(file.Body)
	assert.Equal(t, http.StatusOK, file.StatusCode)
	assert.Equal(t, "%PDF-1.4 aadhar", string(data))
}

func TestRouter_CORSPreflight(t *testing.T) {
	srv, _ := newTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/registration", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://forms.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")

	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, "*", res.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, res.Header.Get("Access-Control-Allow-Methods"), http.MethodPost)
}
