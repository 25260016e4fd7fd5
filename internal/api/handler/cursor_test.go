package handler

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catalogtools/importer/internal/api/storage"
)

func TestProductCursorRoundTrip(t *testing.T) {
	createdAt := time.Date(2025, 6, 1, 12, 30, 0, 123456789, time.UTC)
	original := &storage.ProductCursor{CreatedAt: createdAt, ID: 42}

	encoded := EncodeProductCursor(original)
	decoded, err := DecodeProductCursor(encoded)
	require.NoError(t, err)
	require.NotNil(t, decoded)

	assert.True(t, decoded.CreatedAt.Equal(createdAt))
	assert.Equal(t, int64(42), decoded.ID)
}

func TestJobCursorRoundTrip(t *testing.T) {
	createdAt := time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)
	original := &storage.JobCursor{CreatedAt: createdAt, JobID: "9f8b2c4a-1f2e-4d3c-9a8b-7c6d5e4f3a2b"}

	encoded := EncodeJobCursor(original)
	decoded, err := DecodeJobCursor(encoded)
	require.NoError(t, err)
	require.NotNil(t, decoded)

	assert.True(t, decoded.CreatedAt.Equal(createdAt))
	assert.Equal(t, original.JobID, decoded.JobID)
}

func TestDecodeProductCursor(t *testing.T) {
	tests := []struct {
		name      string
		cursorStr string
		wantNil   bool
		wantErr   bool
	}{
		{
			name:      "empty cursor yields nil without error",
			cursorStr: "",
			wantNil:   true,
		},
		{
			name:      "not base64",
			cursorStr: "!!!not-base64!!!",
			wantErr:   true,
		},
		{
			name:      "missing separator",
			cursorStr: base64.StdEncoding.EncodeToString([]byte("1748780000000000000")),
			wantErr:   true,
		},
		{
			name:      "non-numeric timestamp",
			cursorStr: base64.StdEncoding.EncodeToString([]byte("yesterday|42")),
			wantErr:   true,
		},
		{
			name:      "non-numeric product id",
			cursorStr: base64.StdEncoding.EncodeToString([]byte("1748780000000000000|abc")),
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cursor, err := DecodeProductCursor(tt.cursorStr)

			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, cursor)
			}
		})
	}
}

func TestDecodeJobCursor_Empty(t *testing.T) {
	cursor, err := DecodeJobCursor("")
	require.NoError(t, err)
	assert.Nil(t, cursor)
}
