package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shadiyar7/repair-platform-sub000/internal/domain/integration"
	"github.com/shadiyar7/repair-platform-sub000/internal/domain/shared"
	"github.com/shadiyar7/repair-platform-sub000/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewS3ArtifactStorage_Validation(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name    string
		cfg     *config.StorageConfig
		wantErr string
	}{
		{"nil config", nil, "configuration is required"},
		{"missing bucket", &config.StorageConfig{AccessKey: "k", SecretKey: "s"}, "bucket is required"},
		{"missing credentials", &config.StorageConfig{Bucket: "b"}, "secret key are required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewS3ArtifactStorage(ctx, tt.cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func newTestS3(t *testing.T, handler http.HandlerFunc) *S3ArtifactStorage {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	s, err := NewS3ArtifactStorage(context.Background(), &config.StorageConfig{
		Endpoint:     server.URL,
		Region:       "us-east-1",
		Bucket:       "procurement-documents",
		AccessKey:    "test-key",
		SecretKey:    "test-secret",
		UsePathStyle: true,
	})
	require.NoError(t, err)
	return s
}

func TestS3ArtifactStorage_Put(t *testing.T) {
	var gotPath, gotType, gotBody string
	s := newTestS3(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotType = r.Header.Get("Content-Type")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.Header().Set("ETag", `"abc"`)
		w.WriteHeader(http.StatusOK)
	})

	ref, err := s.Put(context.Background(), "orders/ORD-1/invoice.pdf", []byte("%PDF-1.7 body"), "application/pdf")
	require.NoError(t, err)

	assert.Equal(t, "s3://procurement-documents/orders/ORD-1/invoice.pdf", ref)
	assert.Equal(t, "/procurement-documents/orders/ORD-1/invoice.pdf", gotPath)
	assert.Equal(t, "application/pdf", gotType)
	assert.Contains(t, gotBody, "%PDF-1.7 body")
}

func TestS3ArtifactStorage_PutErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"access denied is rejected", http.StatusForbidden, shared.ErrIntegrationRejected},
		{"server error is unavailable", http.StatusServiceUnavailable, shared.ErrIntegrationUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			s := newTestS3(t, func(w http.ResponseWriter, r *http.Request) {
				calls++
				w.Header().Set("Content-Type", "application/xml")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`<Error><Code>Failure</Code><Message>nope</Message></Error>`))
			})

			_, err := s.Put(context.Background(), "k", []byte("x"), "text/plain")
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, 1, calls, "adapter must not retry")
		})
	}
}

func TestS3ArtifactStorage_EmptyKey(t *testing.T) {
	s := newTestS3(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})
	_, err := s.Put(context.Background(), "", []byte("x"), "text/plain")
	assert.ErrorIs(t, err, shared.ErrIntegrationRejected)
}

func TestMemoryArtifactStorage(t *testing.T) {
	s := NewMemoryArtifactStorage()
	data := []byte("<html>invoice</html>")

	ref, err := s.Put(context.Background(), "orders/1/invoice.html", data, "text/html")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ref, "memory://"))

	data[0] = 'X'
	obj, ok := s.Get("orders/1/invoice.html")
	require.True(t, ok)
	assert.Equal(t, "<html>invoice</html>", string(obj.Data), "stored data must be a copy")
	assert.Equal(t, "text/html", obj.ContentType)

	_, err = s.Put(context.Background(), "", data, "")
	assert.ErrorIs(t, err, shared.ErrIntegrationRejected)
	assert.False(t, integration.IsRetryable(err))
}
