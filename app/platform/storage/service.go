package storage

import (
	"errors"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/segmentio/ksuid"

	"ams/app/database"
	"ams/pkg/utils"
)

const keyPrefix = "profile-images"

var (
	ErrExtensionNotAllowed = errors.New("file extension not allowed")
	ErrUnavailable         = errors.New("storage not configured")
)

var allowedExtensions = []string{"jpg", "jpeg", "png", "gif", "webp"}

// Service stores profile images in the configured object store.
type Service struct {
	store     fiber.Storage
	publicURL string
}

// NewService returns a service backed by store. A nil store makes every
// upload fail with ErrUnavailable.
func NewService(store fiber.Storage, publicURL string) *Service {
	return &Service{
		store:     store,
		publicURL: strings.TrimRight(publicURL, "/"),
	}
}

func (s *Service) Enabled() bool {
	return s.store != nil
}

func (s *Service) IsFileExtensionAllowed(filename string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	for _, allowed := range allowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// GenerateKeyName returns a unique, time ordered object key for filename.
func (s *Service) GenerateKeyName(id ksuid.KSUID, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	base := utils.Slugify(strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename)))
	if base == "" {
		base = "image"
	}
	return fmt.Sprintf("%s/%s/%s%s", keyPrefix, id.String(), base, ext)
}

// Upload writes file to the store and returns the row describing it. The
// caller persists the row.
func (s *Service) Upload(c *fiber.Ctx, file *multipart.FileHeader) (*database.ProfileImage, error) {
	if !s.Enabled() {
		return nil, ErrUnavailable
	}
	if !s.IsFileExtensionAllowed(file.Filename) {
		return nil, ErrExtensionNotAllowed
	}

	id := ksuid.New()
	key := s.GenerateKeyName(id, file.Filename)
	if err := c.SaveFileToStorage(file, key, s.store); err != nil {
		return nil, fmt.Errorf("save %s: %w", key, err)
	}

	url := key
	if s.publicURL != "" {
		url = s.publicURL + "/" + key
	}

	return &database.ProfileImage{
		ID:               id.String(),
		Key:              key,
		URL:              url,
		OriginalFilename: file.Filename,
		MimeType:         file.Header.Get("Content-Type"),
		SizeBytes:        file.Size,
	}, nil
}
