package handler

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/catalogtools/importer/internal/api/storage"
)

// Cursors are base64("<created_at unixnano>|<id>"). Products key on a serial
// ID, import jobs on a UUID; the codecs only differ in the ID leg.

func DecodeProductCursor(cursorStr string) (*storage.ProductCursor, error) {
	createdAt, id, err := decodeCursorParts(cursorStr)
	if err != nil || id == "" {
		return nil, err
	}

	productID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid product id in cursor: %w", err)
	}

	return &storage.ProductCursor{
		CreatedAt: createdAt,
		ID:        productID,
	}, nil
}

func EncodeProductCursor(cursor *storage.ProductCursor) string {
	return encodeCursorParts(cursor.CreatedAt, strconv.FormatInt(cursor.ID, 10))
}

func DecodeJobCursor(cursorStr string) (*storage.JobCursor, error) {
	createdAt, id, err := decodeCursorParts(cursorStr)
	if err != nil || id == "" {
		return nil, err
	}

	return &storage.JobCursor{
		CreatedAt: createdAt,
		JobID:     id,
	}, nil
}

func EncodeJobCursor(cursor *storage.JobCursor) string {
	return encodeCursorParts(cursor.CreatedAt, cursor.JobID)
}

func decodeCursorParts(cursorStr string) (time.Time, string, error) {
	if cursorStr == "" {
		return time.Time{}, "", nil
	}

	decoded, err := base64.StdEncoding.DecodeString(cursorStr)
	if err != nil {
		return time.Time{}, "", err
	}

	parts := strings.Split(string(decoded), "|")
	if len(parts) != 2 {
		return time.Time{}, "", fmt.Errorf("invalid cursor format")
	}

	nanos, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return time.Time{}, "", fmt.Errorf("invalid createdAt in cursor: %w", err)
	}

	return time.Unix(0, nanos), parts[1], nil
}

func encodeCursorParts(createdAt time.Time, id string) string {
	cs := fmt.Sprintf("%d|%s", createdAt.UnixNano(), id)
	return base64.StdEncoding.EncodeToString([]byte(cs))
}
