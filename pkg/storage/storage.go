// Package storage keeps uploaded receipt images.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Store persists receipt images and returns a reference that can be kept
// on the scan record.
type Store interface {
	Put(ctx context.Context, owner string, r io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, ref string) error
}

// ObjectName builds {owner}/YYYY/MM/{uuid}{ext}.
func ObjectName(owner string, now time.Time, contentType string) string {
	owner = strings.Trim(path.Clean("/"+owner), "/")
	if owner == "" {
		owner = "anonymous"
	}
	return fmt.Sprintf("%s/%d/%02d/%s%s", owner, now.Year(), now.Month(), uuid.NewString(), Extension(contentType))
}

// Extension maps an image content type to a file extension.
func Extension(contentType string) string {
	switch strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "image/bmp":
		return ".bmp"
	case "image/tiff":
		return ".tiff"
	default:
		return ".bin"
	}
}
