package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	infraconfig "github.com/arflow/backend/internal/infrastructure/config"
)

func TestNewS3ArchiveStore_Validation(t *testing.T) {
	t.Run("requires configuration", func(t *testing.T) {
		_, err := NewS3ArchiveStore(nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "configuration is required")
	})

	t.Run("requires bucket", func(t *testing.T) {
		_, err := NewS3ArchiveStore(&infraconfig.StorageConfig{
			AccessKey: "key",
			SecretKey: "secret",
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bucket is required")
	})

	t.Run("requires access key", func(t *testing.T) {
		_, err := NewS3ArchiveStore(&infraconfig.StorageConfig{
			Bucket:    "ar-attachments",
			SecretKey: "secret",
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "access key is required")
	})

	t.Run("requires secret key", func(t *testing.T) {
		_, err := NewS3ArchiveStore(&infraconfig.StorageConfig{
			Bucket:    "ar-attachments",
			AccessKey: "key",
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "secret key is required")
	})

	t.Run("builds client with custom endpoint", func(t *testing.T) {
		store, err := NewS3ArchiveStore(&infraconfig.StorageConfig{
			Bucket:    "ar-attachments",
			AccessKey: "key",
			SecretKey: "secret",
			Endpoint:  "minio.internal:9000",
			KeyPrefix: "attachments/",
			PathStyle: true,
		})
		require.NoError(t, err)
		assert.Equal(t, "ar-attachments", store.bucket)
		assert.Equal(t, "attachments", store.keyPrefix)
	})
}

func TestNormalizeEndpoint(t *testing.T) {
	tests := []struct {
		name     string
		endpoint string
		useSSL   bool
		want     string
	}{
		{"empty means AWS", "", false, ""},
		{"bare host gets http", "minio.internal:9000", false, "http://minio.internal:9000"},
		{"bare host gets https with ssl", "minio.internal:9000", true, "https://minio.internal:9000"},
		{"existing scheme kept", "https://s3.example.com", false, "https://s3.example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := normalizeEndpoint(tt.endpoint, tt.useSSL)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
