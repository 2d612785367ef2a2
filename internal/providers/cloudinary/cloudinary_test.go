package cloudinary

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/direct-tree/internal/lib/sl"
	"github.com/magabrotheeeer/direct-tree/internal/models"
)

func TestSignature(t *testing.T) {
	// пример из документации Cloudinary
	params := map[string]string{
		"eager":     "w_400,h_300,c_pad|w_260,h_200,c_crop",
		"public_id": "sample_image",
		"timestamp": "1315060510",
	}
	assert.Equal(t, "bfd09f95f331f558cbd1320e67aa8d488770583e", Signature(params, "abcd"))
}

func TestUpload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1_1/demo/image/upload", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "key", r.FormValue("api_key"))
		assert.Equal(t, "direct-tree/businesses", r.FormValue("folder"))
		assert.Equal(t, "1767225600", r.FormValue("timestamp"))
		assert.Equal(t, Signature(map[string]string{
			"folder":    "direct-tree/businesses",
			"timestamp": "1767225600",
		}, "secret"), r.FormValue("signature"))

		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, "photo.jpg", hdr.Filename)
		assert.Equal(t, "jpeg-bytes", string(data))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"public_id":"direct-tree/businesses/abc","secure_url":"https://res.cloudinary.com/demo/abc.jpg"}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, CloudName: "demo", APIKey: "key", APISecret: "secret", Folder: "direct-tree"}, sl.Discard())
	c.now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }

	url, err := c.Upload(context.Background(), "businesses", "photo.jpg", strings.NewReader("jpeg-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "https://res.cloudinary.com/demo/abc.jpg", url)
}

func TestUpload_Error(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid Signature"}}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, CloudName: "demo"}, sl.Discard())
	_, err := c.Upload(context.Background(), "", "a.png", strings.NewReader("x"))
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrProvider)
	assert.Contains(t, err.Error(), "Invalid Signature")
}
