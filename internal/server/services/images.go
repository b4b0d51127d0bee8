package services

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/dmitrijs2005/listings/internal/common"
	"github.com/dmitrijs2005/listings/internal/dbx"
	"github.com/dmitrijs2005/listings/internal/logging"
	"github.com/dmitrijs2005/listings/internal/server/auth"
	"github.com/dmitrijs2005/listings/internal/server/config"
	"github.com/dmitrijs2005/listings/internal/server/models"
	"github.com/dmitrijs2005/listings/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// ObjectStore uploads a blob and returns its durable URL.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error)
}

// ImageUpload is one uploaded file. Size is the declared size and may be
// zero when unknown.
type ImageUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// ImageService attaches uploaded images to listings.
type ImageService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	store       ObjectStore
	maxBytes    int64
	log         logging.Logger
}

func NewImageService(db *sql.DB, m repomanager.RepositoryManager, store ObjectStore, cfg *config.Config, log logging.Logger) *ImageService {
	return &ImageService{
		db:          db,
		repomanager: m,
		store:       store,
		maxBytes:    cfg.MaxUploadBytes,
		log:         log,
	}
}

// Attach uploads the image and records it on the listing. The upload runs
// outside any transaction; the row is written only after it succeeds.
func (s *ImageService) Attach(ctx context.Context, caller *auth.Identity, listingID string, up ImageUpload) (*models.ListingImage, error) {
	if _, err := uuid.Parse(listingID); err != nil {
		return nil, common.ErrNotFound
	}

	err := dbx.WithTx(ctx, s.db, dbx.ReadOnly, func(ctx context.Context, tx dbx.DBTX) error {
		l, err := s.repomanager.Listings(tx).GetByID(ctx, listingID)
		if err != nil {
			return err
		}
		if !auth.CanMutateListing(caller, l.UserID) {
			return fmt.Errorf("%w: not the owner of listing %s", common.ErrForbidden, listingID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	data, contentType, err := s.readImage(up)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("listings/%s/%s-%s", listingID, uuid.NewString(), sanitizeFilename(up.Filename))
	url, err := s.store.Put(ctx, key, contentType, bytes.NewReader(data), int64(len(data)))
	if err != nil {
		s.log.Error(ctx, "image upload failed", "listing_id", listingID, "key", key, "error", err)
		if !errors.Is(err, common.ErrStorageUnavailable) {
			err = fmt.Errorf("%w: %v", common.ErrStorageUnavailable, err)
		}
		return nil, err
	}

	var img *models.ListingImage
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		img, err = s.repomanager.Images(tx).Create(ctx, &models.ListingImage{ListingID: listingID, URL: url})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info(ctx, "image attached", "listing_id", listingID, "image_id", img.ID)
	return img, nil
}

// readImage buffers the upload within the size limit and resolves its
// content type, sniffing when none or a generic one was declared.
func (s *ImageService) readImage(up ImageUpload) ([]byte, string, error) {
	if up.Body == nil {
		return nil, "", common.NewValidationError("file", "is required")
	}
	if up.Size > s.maxBytes {
		return nil, "", common.NewValidationError("file", fmt.Sprintf("must be at most %d bytes", s.maxBytes))
	}

	data, err := io.ReadAll(io.LimitReader(up.Body, s.maxBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("read upload: %w", err)
	}
	switch {
	case len(data) == 0:
		return nil, "", common.NewValidationError("file", "is empty")
	case int64(len(data)) > s.maxBytes:
		return nil, "", common.NewValidationError("file", fmt.Sprintf("must be at most %d bytes", s.maxBytes))
	}

	contentType := ""
	if mt, _, err := mime.ParseMediaType(up.ContentType); err == nil {
		contentType = mt
	}
	if contentType == "" || contentType == "application/octet-stream" {
		contentType, _, _ = mime.ParseMediaType(http.DetectContentType(data))
	}
	if !strings.HasPrefix(contentType, "image/") {
		return nil, "", common.NewValidationError("file", "must be an image")
	}
	return data, contentType, nil
}

// sanitizeFilename keeps the base name and replaces characters outside
// [A-Za-z0-9._-] with '_'.
func sanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, `\`, "/"))
	if name == "." || name == "/" || name == "" {
		return "image"
	}
	b := []byte(name)
	for i, c := range b {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '.', c == '-', c == '_':
		default:
			b[i] = '_'
		}
	}
	const maxLen = 128
	if len(b) > maxLen {
		b = b[len(b)-maxLen:]
	}
	return string(b)
}
