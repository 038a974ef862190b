package repository

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/kaistullich/Image-Converter/internal/domain"
)

var (
	ErrNotFound    = errors.New("image not found")
	ErrInvalidName = errors.New("invalid image name")
)

// ImageRepository stores images in one flat directory.
type ImageRepository interface {
	Dir() string
	Path(name string) (string, error)
	Save(ctx context.Context, name string, body io.Reader) (*domain.StoredImage, error)
	Stat(ctx context.Context, name string) (*domain.StoredImage, error)
	List(ctx context.Context) ([]domain.StoredImage, error)
	Remove(ctx context.Context, name string) error
}

type fsRepository struct {
	dir string
	log *zap.Logger
}

// NewFSRepository opens dir as the upload directory, creating it if needed.
func NewFSRepository(dir string, log *zap.Logger) (ImageRepository, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory %s: %w", dir, err)
	}

	return &fsRepository{dir: dir, log: log}, nil
}

func (r *fsRepository) Dir() string {
	return r.dir
}

// Path resolves name inside the upload directory. Names must be a single
// path element.
func (r *fsRepository) Path(name string) (string, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(r.dir, name), nil
}

func (r *fsRepository) Save(ctx context.Context, name string, body io.Reader) (*domain.StoredImage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := r.Path(name)
	if err != nil {
		return nil, err
	}

	tmp, err := os.CreateTemp(r.dir, ".upload-*")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	size, err := io.Copy(tmp, body)
	if err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("chmod %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return nil, fmt.Errorf("store %s: %w", name, err)
	}

	r.log.Info("Image stored",
		zap.String("name", name),
		zap.Int64("size", size))

	return r.Stat(ctx, name)
}

func (r *fsRepository) Stat(_ context.Context, name string) (*domain.StoredImage, error) {
	path, err := r.Path(name)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	return &domain.StoredImage{
		Name:    name,
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// List returns the regular files in the upload directory. Dot files are
// in-flight temp files and never stored names, so they are skipped.
func (r *fsRepository) List(ctx context.Context) ([]domain.StoredImage, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", r.dir, err)
	}

	images := make([]domain.StoredImage, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !entry.Type().IsRegular() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			r.log.Warn("Failed to stat stored image",
				zap.String("name", entry.Name()),
				zap.Error(err))
			continue
		}

		images = append(images, domain.StoredImage{
			Name:    entry.Name(),
			Path:    filepath.Join(r.dir, entry.Name()),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	return images, nil
}

func (r *fsRepository) Remove(_ context.Context, name string) error {
	path, err := r.Path(name)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return err
	}

	r.log.Info("Image removed", zap.String("name", name))
	return nil
}
