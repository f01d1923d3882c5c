package cloudinary

import (
	"context"
	"crypto/sha1"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smarttrack/internal/sentinel"
)

func testClient(url string) *Client {
	c := New("demo", "key", "secret", "smarttrack/qr")
	c.BaseURL = url
	c.Now = func() time.Time { return time.Unix(1700000000, 0) }
	return c
}

func TestUploadPNG(t *testing.T) {
	png := []byte("\x89PNG fake")
	var gotPath string
	fields := map[string]string{}
	var gotFile []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, r.ParseMultipartForm(1<<20))
		for k, v := range r.MultipartForm.Value {
			fields[k] = v[0]
		}
		f, _, err := r.FormFile("file")
		require.NoError(t, err)
		gotFile, _ = io.ReadAll(f)
		fmt.Fprint(w, `{"public_id":"smarttrack/qr/p1","secure_url":"https://res.example/p1.png","format":"png"}`)
	}))
	defer srv.Close()

	res, err := testClient(srv.URL).UploadPNG(context.Background(), png, "p1")
	require.NoError(t, err)
	assert.Equal(t, "https://res.example/p1.png", res.SecureURL)
	assert.Equal(t, "/v1_1/demo/image/upload", gotPath)
	assert.Equal(t, png, gotFile)
	assert.Equal(t, "p1", fields["public_id"])
	assert.Equal(t, "key", fields["api_key"])
	assert.Equal(t, "1700000000", fields["timestamp"])

	want := fmt.Sprintf("%x", sha1.Sum([]byte("folder=smarttrack/qr&overwrite=true&public_id=p1&timestamp=1700000000secret")))
	assert.Equal(t, want, fields["signature"])
}

func TestUploadPNGFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":{"message":"Invalid Signature"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).UploadPNG(context.Background(), []byte("x"), "p1")
	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel.ErrExternalFailure)
	assert.Contains(t, err.Error(), "401")
}

func TestUploadPNGUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := testClient(url).UploadPNG(context.Background(), []byte("x"), "p1")
	assert.ErrorIs(t, err, sentinel.ErrExternalFailure)
}
