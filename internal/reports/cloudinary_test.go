package reports

import (
	"context"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gmsas95/vitalink/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(baseURL string) *Client {
	c := NewClient(config.ReportsConfig{
		CloudName: "demo",
		APIKey:    "key",
		APISecret: "secret",
		BaseURL:   baseURL,
	})
	c.now = func() time.Time { return time.Unix(1750000000, 0) }
	return c
}

func TestUpload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/demo/auto/upload", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))

		assert.Equal(t, "key", r.FormValue("api_key"))
		assert.Equal(t, "authenticated", r.FormValue("type"))
		assert.Equal(t, "1750000000", r.FormValue("timestamp"))
		assert.NotEmpty(t, r.FormValue("signature"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "scan.pdf", header.Filename)

		fmt.Fprint(w, `{"public_id":"reports/abc123","resource_type":"image","version":1750000001,"format":"pdf"}`)
	}))
	defer srv.Close()

	client := testClient(srv.URL)

	result, err := client.Upload(context.Background(), []byte("pdf bytes"), "scan.pdf")
	require.NoError(t, err)
	assert.Equal(t, "reports/abc123", result.AssetID)
	assert.Equal(t, "image", result.ResourceType)
	assert.Equal(t, int64(1750000001), result.Version)
	assert.Equal(t, "pdf", result.Format)
}

func TestUpload_ServerErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"Invalid signature"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := testClient(srv.URL)

	_, err := client.Upload(context.Background(), []byte("x"), "scan.pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestSign_SortsParameters(t *testing.T) {
	client := testClient("")

	// Signature must be over "timestamp=...&type=..." regardless of map order.
	sig := client.sign(map[string]string{
		"type":      "authenticated",
		"timestamp": "1750000000",
	})

	sum := sha1.Sum([]byte("timestamp=1750000000&type=authenticated" + "secret"))
	assert.Equal(t, fmt.Sprintf("%x", sum), sig)
}

func TestSignedURL(t *testing.T) {
	client := testClient("")

	url := client.SignedURL("reports/abc123", "image", 1750000001, "pdf")

	path := "v1750000001/reports/abc123.pdf"
	sum := sha1.Sum([]byte(path + "secret"))
	sig := base64.RawURLEncoding.EncodeToString(sum[:])[:8]

	assert.Equal(t,
		"https://res.cloudinary.com/demo/image/authenticated/s--"+sig+"--/"+path,
		url)
}

func TestSignedURL_Deterministic(t *testing.T) {
	client := testClient("")

	first := client.SignedURL("reports/abc123", "image", 1, "pdf")
	second := client.SignedURL("reports/abc123", "image", 1, "pdf")
	assert.Equal(t, first, second)

	other := client.SignedURL("reports/other", "image", 1, "pdf")
	assert.NotEqual(t, first, other)
}
