package services

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"tryonapi/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSigner struct {
	calls int
}

func (f *fakeSigner) GetPresignedR2FileReadURL(ctx context.Context, bucketName, fileKey string) (string, error) {
	f.calls++
	return "https://r2.example.com/" + bucketName + "/" + fileKey + "?sig=1", nil
}

func TestURLCacheServiceLoadsOnMiss(t *testing.T) {
	signer := &fakeSigner{}
	cacheService, err := NewURLCacheService(signer, "results-bucket")
	require.NoError(t, err)

	url, err := cacheService.GetReadURL(context.Background(), "results/a.png")
	require.NoError(t, err)
	assert.Equal(t, "https://r2.example.com/results-bucket/results/a.png?sig=1", url)
	assert.GreaterOrEqual(t, signer.calls, 1)

	url, err = cacheService.GetReadURL(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, url)
}

func TestUploadToPresignedURL(t *testing.T) {
	var contentType string
	var received []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		received, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	r2 := &R2Service{HTTPClient: server.Client()}
	status, err := r2.UploadToPresignedURL(context.Background(), server.URL+"/results/a.png", pngBytes)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "image/png", contentType)
	assert.Equal(t, pngBytes, received)

	_, err = r2.UploadToPresignedURL(context.Background(), server.URL, []byte("plain text"))
	assert.ErrorContains(t, err, "unsupported file type")
}

func TestUploadToPresignedURLRejectedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("SignatureDoesNotMatch"))
	}))
	defer server.Close()

	status, err := (&R2Service{HTTPClient: server.Client()}).UploadToPresignedURL(context.Background(), server.URL, pngBytes)
	assert.Equal(t, http.StatusForbidden, status)
	assert.ErrorContains(t, err, "SignatureDoesNotMatch")
}

func TestMaterializeImage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(pngBytes)
	}))
	defer server.Close()

	data, mime, err := MaterializeImage(context.Background(), models.NewURIImage(server.URL+"/out.png"))
	require.NoError(t, err)
	assert.Equal(t, pngBytes, data)
	assert.Equal(t, "image/png", mime)

	data, mime, err = MaterializeImage(context.Background(), models.NewInlineImage([]byte("jpeg"), "image/jpeg"))
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg"), data)
	assert.Equal(t, "image/jpeg", mime)
}

func TestCheckPublicURL(t *testing.T) {
	for _, rawURL := range []string{
		"http://127.0.0.1/x.png",
		"http://169.254.169.254/latest/meta-data/",
		"http://10.0.0.7:8080/a.jpg",
		"http://192.168.1.1/a.jpg",
		"http://[::1]/a.jpg",
		"http://[fe80::1]/a.jpg",
		"http://0.0.0.0/a.jpg",
		"http://localhost:6379/",
		"http://api.localhost/a.jpg",
		"file:///etc/passwd",
	} {
		assert.ErrorIs(t, CheckPublicURL(rawURL), ErrForbiddenTarget, rawURL)
	}
	assert.NoError(t, CheckPublicURL("https://cdn.example.com/shirt.jpg"))
	assert.NoError(t, CheckPublicURL("http://93.184.216.34/shirt.jpg"))
}

func TestFetchPublicURLRefusesLoopback(t *testing.T) {
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		_, _ = w.Write(pngBytes)
	}))
	defer server.Close()

	_, err := FetchPublicURL(context.Background(), server.URL+"/x.png")
	assert.ErrorIs(t, err, ErrForbiddenTarget)
	assert.Equal(t, 0, hits)

	// names resolving to private ranges are stopped when dialing
	assert.ErrorIs(t, denyNonPublic("tcp", "10.1.2.3:443", nil), ErrForbiddenTarget)
	assert.ErrorIs(t, denyNonPublic("tcp", "[::1]:80", nil), ErrForbiddenTarget)
	assert.NoError(t, denyNonPublic("tcp", "93.184.216.34:443", nil))
}
