package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormaliseEndpoint(t *testing.T) {
	cases := []struct {
		raw      string
		endpoint string
		secure   bool
		wantErr  bool
	}{
		{raw: "minio:9000", endpoint: "minio:9000"},
		{raw: "http://minio:9000", endpoint: "minio:9000"},
		{raw: "https://s3.example.com", endpoint: "s3.example.com", secure: true},
		{raw: " https://s3.example.com/ ", endpoint: "s3.example.com", secure: true},
		{raw: "", wantErr: true},
		{raw: "http://", wantErr: true},
		{raw: "http://minio:9000/bucket", wantErr: true},
	}

	for _, tc := range cases {
		endpoint, secure, err := normaliseEndpoint(tc.raw)
		if tc.wantErr {
			assert.Error(t, err, tc.raw)
			continue
		}
		assert.NoError(t, err, tc.raw)
		assert.Equal(t, tc.endpoint, endpoint, tc.raw)
		assert.Equal(t, tc.secure, secure, tc.raw)
	}
}

func TestNewMinioImageStore_IncompleteConfig(t *testing.T) {
	_, err := NewMinioImageStore(context.Background(), MinioOptions{Endpoint: "minio:9000"})
	assert.EqualError(t, err, "minio configuration incomplete")
}
