package storage

import (
	"context"
	"io"
	"net/url"
	"strings"
)

// ObjectStore receives finished artifacts. Put returns the stored location.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error)
}

const s3Scheme = "s3"

// ParseS3URL splits "s3://bucket/key" into bucket and key.
func ParseS3URL(raw string) (bucket, key string, ok bool) {
	if !IsRemote(raw) {
		return "", "", false
	}
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return "", "", false
	}
	key = strings.TrimLeft(u.Path, "/")
	if key == "" || strings.HasSuffix(key, "/") {
		return "", "", false
	}
	return u.Host, key, true
}

func IsRemote(dest string) bool {
	return strings.HasPrefix(strings.TrimSpace(dest), s3Scheme+"://")
}

// ContentType guesses from the file extension; diagrams writes png, jpg, svg or pdf.
func ContentType(name string) string {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".png"):
		return "image/png"
	case strings.HasSuffix(lower, ".jpg"), strings.HasSuffix(lower, ".jpeg"):
		return "image/jpeg"
	case strings.HasSuffix(lower, ".svg"):
		return "image/svg+xml"
	case strings.HasSuffix(lower, ".pdf"):
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}
