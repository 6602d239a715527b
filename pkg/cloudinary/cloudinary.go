package cloudinary

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Config contains credentials required to talk to Cloudinary.
type Config struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

// StoredFile identifies an uploaded asset so it can be served or destroyed later.
type StoredFile struct {
	PublicID     string
	URL          string
	ResourceType string
}

// Service stores submission files in Cloudinary.
type Service struct {
	client *cloudinary.Cloudinary
	folder string
	logger zerolog.Logger
	now    func() time.Time
}

// New constructs a Cloudinary service instance.
func New(cfg Config, logger zerolog.Logger) (*Service, error) {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("cloudinary credentials must be provided")
	}

	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary: %w", err)
	}

	return &Service{
		client: cld,
		folder: cfg.Folder,
		logger: logger.With().Str("component", "cloudinary").Logger(),
		now:    time.Now,
	}, nil
}

// Upload sends the file to Cloudinary and returns the handle needed to destroy it.
func (s *Service) Upload(ctx context.Context, name string, reader io.Reader) (StoredFile, error) {
	folder := strings.Trim(s.folder, "/")
	publicID := BuildPublicID(name, s.now())

	params := uploader.UploadParams{
		Folder:       folder,
		PublicID:     publicID,
		ResourceType: "auto",
	}

	result, err := s.client.Upload.Upload(ctx, reader, params)
	if err != nil {
		return StoredFile{}, fmt.Errorf("failed to upload asset: %w", err)
	}
	if result.Error.Message != "" {
		return StoredFile{}, fmt.Errorf("failed to upload asset: %s", result.Error.Message)
	}

	s.logger.Info().Str("public_id", result.PublicID).Str("resource_type", result.ResourceType).Msg("file uploaded to cloudinary")

	return StoredFile{
		PublicID:     result.PublicID,
		URL:          result.SecureURL,
		ResourceType: result.ResourceType,
	}, nil
}

// Destroy removes a previously uploaded asset.
func (s *Service) Destroy(ctx context.Context, publicID, resourceType string) error {
	if publicID == "" {
		return fmt.Errorf("public id is required")
	}
	if resourceType == "" {
		resourceType = "image"
	}

	result, err := s.client.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID:     publicID,
		ResourceType: resourceType,
	})
	if err != nil {
		return fmt.Errorf("failed to destroy asset: %w", err)
	}
	if result.Error.Message != "" {
		return fmt.Errorf("failed to destroy asset: %s", result.Error.Message)
	}
	if result.Result != "ok" && result.Result != "not found" {
		return fmt.Errorf("unexpected destroy result %q", result.Result)
	}

	s.logger.Info().Str("public_id", publicID).Str("result", result.Result).Msg("file removed from cloudinary")
	return nil
}

// BuildPublicID derives a URL-safe public id from a file name.
// The random suffix keeps uploads of the same name within one second apart.
func BuildPublicID(name string, now time.Time) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	base = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return '-'
	}, base)

	base = strings.Trim(base, "-")
	if base == "" {
		base = "upload"
	}

	return fmt.Sprintf("%s-%d-%s", base, now.Unix(), uuid.NewString())
}
