// Package media uploads guide images and audio and resolves their public URLs
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/findosh/audioguide/internal/models"
	"go.uber.org/zap"
)

var (
	ErrAuthRequired = errors.New("authentication required")
	ErrValidation   = errors.New("validation error")
)

// ObjectStorage stores uploaded bytes under bucket/key
type ObjectStorage interface {
	Put(ctx context.Context, bucket, key string, body io.Reader, size int64, contentType string) error
	// URL returns a direct URL for an object the driver can serve itself
	URL(bucket, key string) (string, bool)
}

// Principal is the uploader
type Principal interface {
	CurrentUser(ctx context.Context) *models.User
}

// Object is a stored upload
type Object struct {
	Path string `json:"path"`
	URL  string `json:"url"`
}

// Service names, stores and resolves uploads
type Service struct {
	storage    ObjectStorage
	publicBase string
	log        *zap.Logger
	now        func() time.Time
}

// NewService creates a media service. publicBase is the storage origin used
// for objects the driver cannot serve directly.
func NewService(storage ObjectStorage, publicBase string, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		storage:    storage,
		publicBase: strings.TrimRight(publicBase, "/"),
		log:        log,
		now:        time.Now,
	}
}

// Upload stores body under dir with a generated name and returns its path
func (s *Service) Upload(ctx context.Context, who Principal, bucket, dir, fileName, contentType string, body io.Reader, size int64) (Object, error) {
	if who == nil || who.CurrentUser(ctx) == nil {
		return Object{}, ErrAuthRequired
	}
	if strings.TrimSpace(bucket) == "" || body == nil || size <= 0 {
		return Object{}, ErrValidation
	}
	if strings.TrimSpace(contentType) == "" {
		contentType = "application/octet-stream"
	}

	key := s.objectKey(dir, fileName)
	if err := s.storage.Put(ctx, bucket, key, body, size, contentType); err != nil {
		return Object{}, fmt.Errorf("put object: %w", err)
	}

	s.log.Info("media uploaded", zap.String("bucket", bucket), zap.String("path", key), zap.Int64("size", size))
	return Object{Path: key, URL: s.PublicURL(bucket, key)}, nil
}

// PublicURL returns the URL an uploaded object is served from
func (s *Service) PublicURL(bucket, key string) string {
	if u, ok := s.storage.URL(bucket, key); ok {
		return u
	}
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.publicBase, bucket, key)
}

// Clear drops device-local objects when the driver keeps any
func (s *Service) Clear(ctx context.Context) error {
	if c, ok := s.storage.(interface{ Clear(context.Context) error }); ok {
		return c.Clear(ctx)
	}
	return nil
}

// objectKey builds <dir>/<unix ms>_<random>.<ext>
func (s *Service) objectKey(dir, fileName string) string {
	name := strconv.FormatInt(s.now().UnixMilli(), 10) + "_" + strconv.FormatUint(rand.Uint64(), 36)
	if ext := strings.TrimPrefix(path.Ext(fileName), "."); ext != "" {
		name += "." + strings.ToLower(ext)
	}

	dir = strings.Trim(dir, "/")
	if dir == "" {
		return name
	}
	return dir + "/" + name
}
