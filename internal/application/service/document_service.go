package service

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/garyjia/permits-on-the-go/internal/application/port"
	"github.com/garyjia/permits-on-the-go/internal/domain/entity"
	"github.com/google/uuid"
)

// DefaultMaxDocumentSize bounds uploads when no limit is configured
const DefaultMaxDocumentSize = 25 << 20

// DefaultDocumentTypes are the accepted upload content types
var DefaultDocumentTypes = []string{
	"application/pdf",
	"text/plain",
	"text/markdown",
	"image/jpeg",
	"image/png",
	"image/heic",
}

// DocumentConfig holds upload limits
type DocumentConfig struct {
	MaxSizeBytes int64
	AllowedTypes []string
}

// UploadInput is a file attached to a permit
type UploadInput struct {
	PermitID    int64
	Kind        string
	FileName    string
	ContentType string
	Content     []byte
}

// DocumentService stores plan sets, letters and site photos
type DocumentService interface {
	Upload(ctx context.Context, actor string, in UploadInput) (*entity.Document, error)
	List(ctx context.Context, permitID int64) ([]*entity.Document, error)
	Get(ctx context.Context, id int64) (*entity.Document, error)
	Open(ctx context.Context, id int64) (*entity.Document, []byte, error)
	Delete(ctx context.Context, id int64) error
}

type documentServiceImpl struct {
	documentRepo port.DocumentRepository
	chunkRepo    port.ChunkRepository
	permitRepo   port.PermitRepository
	activityRepo port.ActivityRepository
	storage      port.FileStorage
	txManager    port.TransactionManager
	config       DocumentConfig
	logger       Logger
	now          func() time.Time
}

// NewDocumentService creates a new DocumentService
func NewDocumentService(
	documentRepo port.DocumentRepository,
	chunkRepo port.ChunkRepository,
	permitRepo port.PermitRepository,
	activityRepo port.ActivityRepository,
	storage port.FileStorage,
	txManager port.TransactionManager,
	config DocumentConfig,
	logger Logger,
) DocumentService {
	if config.MaxSizeBytes <= 0 {
		config.MaxSizeBytes = DefaultMaxDocumentSize
	}
	if len(config.AllowedTypes) == 0 {
		config.AllowedTypes = DefaultDocumentTypes
	}
	return &documentServiceImpl{
		documentRepo: documentRepo,
		chunkRepo:    chunkRepo,
		permitRepo:   permitRepo,
		activityRepo: activityRepo,
		storage:      storage,
		txManager:    txManager,
		config:       config,
		logger:       logger,
		now:          time.Now,
	}
}

// Upload validates and stores a file, then queues it for indexing
func (s *documentServiceImpl) Upload(ctx context.Context, actor string, in UploadInput) (*entity.Document, error) {
	name := filepath.Base(strings.TrimSpace(in.FileName))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return nil, fmt.Errorf("%w: file name is required", ErrValidation)
	}
	if len(in.Content) == 0 {
		return nil, fmt.Errorf("%w: file is empty", ErrValidation)
	}
	if int64(len(in.Content)) > s.config.MaxSizeBytes {
		return nil, fmt.Errorf("%w: file exceeds %d bytes", ErrValidation, s.config.MaxSizeBytes)
	}

	contentType := normalizeContentType(in.ContentType)
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = normalizeContentType(http.DetectContentType(in.Content))
	}
	if !s.allowed(contentType) {
		return nil, fmt.Errorf("%w: content type %q is not accepted", ErrValidation, contentType)
	}

	kind, err := documentKind(in.Kind, contentType)
	if err != nil {
		return nil, err
	}

	p, err := s.permitRepo.GetByID(ctx, in.PermitID)
	if err != nil {
		return nil, fmt.Errorf("get permit: %w", err)
	}
	if p == nil {
		return nil, fmt.Errorf("%w: permit %d", ErrNotFound, in.PermitID)
	}

	storagePath := fmt.Sprintf("permits/%d/%s%s", in.PermitID, uuid.NewString(), strings.ToLower(filepath.Ext(name)))
	if err := s.storage.Save(ctx, storagePath, in.Content); err != nil {
		s.logger.Error("Failed to store document", "error", err, "permit_id", in.PermitID)
		return nil, fmt.Errorf("store file: %w", err)
	}

	actor = actorOrSystem(actor)
	doc := &entity.Document{
		PermitID:    in.PermitID,
		Kind:        kind,
		FileName:    name,
		ContentType: contentType,
		StoragePath: storagePath,
		SizeBytes:   int64(len(in.Content)),
		IndexStatus: entity.IndexStatusPending,
		UploadedBy:  actor,
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.documentRepo.Create(txCtx, doc); err != nil {
			return fmt.Errorf("create document: %w", err)
		}
		return s.activityRepo.Create(txCtx, &entity.Activity{
			PermitID:  in.PermitID,
			Actor:     actor,
			Action:    entity.ActivityDocumentUploaded,
			Detail:    name,
			CreatedAt: s.now(),
		})
	})
	if err != nil {
		if delErr := s.storage.Delete(ctx, storagePath); delErr != nil {
			s.logger.Error("Failed to remove orphaned file", "error", delErr, "path", storagePath)
		}
		s.logger.Error("Failed to save document", "error", err, "permit_id", in.PermitID)
		return nil, err
	}

	s.logger.Info("Document uploaded",
		"id", doc.ID,
		"permit_id", in.PermitID,
		"content_type", contentType,
		"size", doc.SizeBytes,
	)
	return doc, nil
}

// List retrieves a permit's documents
func (s *documentServiceImpl) List(ctx context.Context, permitID int64) ([]*entity.Document, error) {
	p, err := s.permitRepo.GetByID(ctx, permitID)
	if err != nil {
		return nil, fmt.Errorf("get permit: %w", err)
	}
	if p == nil {
		return nil, fmt.Errorf("%w: permit %d", ErrNotFound, permitID)
	}

	docs, err := s.documentRepo.ListByPermit(ctx, permitID)
	if err != nil {
		s.logger.Error("Failed to list documents", "error", err, "permit_id", permitID)
		return nil, err
	}
	return docs, nil
}

// Get retrieves a document by ID
func (s *documentServiceImpl) Get(ctx context.Context, id int64) (*entity.Document, error) {
	doc, err := s.documentRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("Failed to get document", "error", err, "id", id)
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: document %d", ErrNotFound, id)
	}
	return doc, nil
}

// Open returns a document with its stored bytes
func (s *documentServiceImpl) Open(ctx context.Context, id int64) (*entity.Document, []byte, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	content, err := s.storage.Read(ctx, doc.StoragePath)
	if err != nil {
		s.logger.Error("Failed to read document", "error", err, "id", id, "path", doc.StoragePath)
		return nil, nil, fmt.Errorf("read file: %w", err)
	}
	return doc, content, nil
}

// Delete removes a document, its chunks and the stored file
func (s *documentServiceImpl) Delete(ctx context.Context, id int64) error {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.chunkRepo.DeleteByDocument(txCtx, id); err != nil {
			return fmt.Errorf("delete chunks: %w", err)
		}
		if err := s.documentRepo.Delete(txCtx, id); err != nil {
			if errors.Is(err, port.ErrRecordNotFound) {
				return fmt.Errorf("%w: document %d", ErrNotFound, id)
			}
			return fmt.Errorf("delete document: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to delete document", "error", err, "id", id)
		return err
	}

	if err := s.storage.Delete(ctx, doc.StoragePath); err != nil {
		s.logger.Error("Failed to remove stored file", "error", err, "path", doc.StoragePath)
	}

	s.logger.Info("Document deleted", "id", id, "permit_id", doc.PermitID)
	return nil
}

func (s *documentServiceImpl) allowed(contentType string) bool {
	for _, t := range s.config.AllowedTypes {
		if t == contentType {
			return true
		}
	}
	return false
}

func normalizeContentType(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mediaType
}

func documentKind(kind, contentType string) (string, error) {
	isImage := strings.HasPrefix(contentType, "image/")
	switch kind {
	case "":
		if isImage {
			return entity.DocumentKindPhoto, nil
		}
		return entity.DocumentKindDocument, nil
	case entity.DocumentKindPhoto:
		if !isImage {
			return "", fmt.Errorf("%w: a photo must be an image, got %s", ErrValidation, contentType)
		}
		return kind, nil
	case entity.DocumentKindDocument:
		return kind, nil
	}
	return "", fmt.Errorf("%w: unknown document kind %q", ErrValidation, kind)
}
