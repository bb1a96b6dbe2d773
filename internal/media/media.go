// Package media stores images that arrive inline as data URLs.
package media

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

const (
	MaxImageSize  = 5 * 1024 * 1024 // 5MB
	MaxAvatarSize = 2 * 1024 * 1024 // 2MB

	KindImages  = "images"
	KindAvatars = "avatars"
)

var (
	ErrNotDataURL  = errors.New("not a base64 data URL")
	ErrNotImage    = errors.New("content is not an image")
	ErrTooLarge    = errors.New("image exceeds size limit")
	ErrUnknownKind = errors.New("unknown upload kind")
)

var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// EncodeDataURL renders raw bytes as a base64 data URL
func EncodeDataURL(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURL splits a base64 data URL into its declared MIME type and payload
func DecodeDataURL(s string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return "", nil, ErrNotDataURL
	}
	header, payload, ok := strings.Cut(rest, ",")
	if !ok || !strings.HasSuffix(header, ";base64") {
		return "", nil, ErrNotDataURL
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrNotDataURL, err)
	}
	return strings.TrimSuffix(header, ";base64"), data, nil
}

// DetectImage sniffs the content and returns its MIME type if it is an accepted image
func DetectImage(data []byte) (string, error) {
	mt := mimetype.Detect(data)
	for m := mt; m != nil; m = m.Parent() {
		if _, ok := allowedImageTypes[m.String()]; ok {
			return m.String(), nil
		}
	}
	return "", fmt.Errorf("%w: detected %s", ErrNotImage, mt.String())
}

// Storage writes images to a directory tree served under /uploads
type Storage struct {
	Dir string
}

func NewStorage(dir string) *Storage {
	return &Storage{Dir: dir}
}

// SaveDataURL decodes, validates and writes an inline image and returns its public URL
func (s *Storage) SaveDataURL(kind, dataURL string) (string, error) {
	limit, err := sizeLimit(kind)
	if err != nil {
		return "", err
	}

	_, data, err := DecodeDataURL(dataURL)
	if err != nil {
		return "", err
	}
	if len(data) > limit {
		return "", ErrTooLarge
	}

	// the declared type is not trusted; the bytes decide
	mimeType, err := DetectImage(data)
	if err != nil {
		return "", err
	}

	dir := filepath.Join(s.Dir, kind)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}

	filename := fmt.Sprintf("%s-%d%s", uuid.New().String(), time.Now().Unix(), allowedImageTypes[mimeType])
	if err := os.WriteFile(filepath.Join(dir, filename), data, 0o644); err != nil {
		return "", fmt.Errorf("failed to save image: %w", err)
	}

	return fmt.Sprintf("/uploads/%s/%s", kind, filename), nil
}

// Path resolves a served file, rejecting anything outside the kind directory
func (s *Storage) Path(kind, filename string) (string, error) {
	if _, err := sizeLimit(kind); err != nil {
		return "", err
	}
	if filename == "" || filename != filepath.Base(filename) || strings.HasPrefix(filename, ".") {
		return "", os.ErrNotExist
	}
	return filepath.Join(s.Dir, kind, filename), nil
}

// ContentType returns content type based on file extension
func ContentType(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}

func sizeLimit(kind string) (int, error) {
	switch kind {
	case KindImages:
		return MaxImageSize, nil
	case KindAvatars:
		return MaxAvatarSize, nil
	default:
		return 0, ErrUnknownKind
	}
}
