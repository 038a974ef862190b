package service

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/kaistullich/Image-Converter/internal/domain"
	"github.com/kaistullich/Image-Converter/internal/metrics"
	"github.com/kaistullich/Image-Converter/internal/repository"
	"github.com/kaistullich/Image-Converter/pkg/utils"
)

// Converter rewrites a stored file with its grayscale version.
type Converter interface {
	ConvertToGrayscale(path string) bool
}

type ImageService interface {
	Upload(ctx context.Context, req domain.UploadRequest) domain.UploadResult
	Lookup(ctx context.Context, name string) (*domain.StoredImage, error)
}

type imageService struct {
	repo    repository.ImageRepository
	conv    Converter
	metrics *metrics.Collector
	log     *zap.Logger
	locks   *keyedMutex
}

func NewImageService(repo repository.ImageRepository, conv Converter, m *metrics.Collector, log *zap.Logger) ImageService {
	return &imageService{
		repo:    repo,
		conv:    conv,
		metrics: m,
		log:     log,
		locks:   newKeyedMutex(),
	}
}

func (s *imageService) Upload(ctx context.Context, req domain.UploadRequest) domain.UploadResult {
	result := s.upload(ctx, req)
	s.metrics.RecordUpload(result.Outcome())
	return result
}

func (s *imageService) upload(ctx context.Context, req domain.UploadRequest) domain.UploadResult {
	if req.TooLarge {
		return s.reject(domain.ReasonTooLarge, req.Filename)
	}
	if !req.FieldPresent {
		return s.reject(domain.ReasonMissingFile, req.Filename)
	}
	if req.Filename == "" {
		return s.reject(domain.ReasonEmptyFilename, req.Filename)
	}
	if !utils.AllowedFile(req.Filename) {
		return s.reject(domain.ReasonDisallowedExtension, req.Filename)
	}

	// The allowed extension survives sanitizing, so name is never empty.
	name := utils.SecureFilename(req.Filename)

	unlock := s.locks.Lock(name)
	defer unlock()

	img, err := s.repo.Save(ctx, name, req.Content)
	if err != nil {
		s.log.Error("Failed to store upload",
			zap.String("filename", name),
			zap.Error(err))
		return domain.UploadResult{State: domain.StateConversionFailed}
	}

	if !s.conv.ConvertToGrayscale(img.Path) {
		return domain.UploadResult{State: domain.StateConversionFailed}
	}

	s.log.Info("Image uploaded and converted", zap.String("filename", name))

	return domain.UploadResult{State: domain.StateConverted, Filename: name}
}

func (s *imageService) reject(reason domain.RejectReason, filename string) domain.UploadResult {
	s.log.Debug("Upload rejected",
		zap.String("reason", string(reason)),
		zap.String("filename", filename))
	return domain.Rejected(reason)
}

func (s *imageService) Lookup(ctx context.Context, name string) (*domain.StoredImage, error) {
	return s.repo.Stat(ctx, name)
}

// keyedMutex serialises work per key and drops entries once unused.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedEntry
}

type keyedEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*keyedEntry)}
}

func (k *keyedMutex) Lock(key string) (unlock func()) {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &keyedEntry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()

		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
