package assets

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

var (
	ErrAssetNotFound = errors.New("asset not found")
	ErrInvalidImage  = errors.New("invalid image")
	ErrInvalidRef    = errors.New("invalid asset reference")
)

// Store keeps student photos keyed by student id
type Store interface {
	Save(ctx context.Context, studentID uint, r io.Reader) (string, error)
	Open(ctx context.Context, ref string) (io.ReadCloser, error)
	Delete(ctx context.Context, ref string) error
}

// FileStore writes normalised JPEG photos below a media root
type FileStore struct {
	root         string
	maxDimension int
}

func NewFileStore(root string, maxDimension int) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Join(root, "students"), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media root: %w", err)
	}
	return &FileStore{root: root, maxDimension: maxDimension}, nil
}

// Save decodes the upload, fixes orientation, bounds its size and stores it as JPEG.
// The returned reference is relative to the media root.
func (s *FileStore) Save(ctx context.Context, studentID uint, r io.Reader) (string, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	img = s.bound(img)

	ref := filepath.ToSlash(filepath.Join("students", fmt.Sprintf("%d_%s.jpg", studentID, uuid.NewString())))
	if err := imaging.Save(img, filepath.Join(s.root, ref), imaging.JPEGQuality(85)); err != nil {
		return "", fmt.Errorf("failed to write photo: %w", err)
	}

	return ref, nil
}

func (s *FileStore) bound(img image.Image) image.Image {
	if s.maxDimension <= 0 {
		return img
	}
	b := img.Bounds()
	if b.Dx() <= s.maxDimension && b.Dy() <= s.maxDimension {
		return img
	}
	return imaging.Fit(img, s.maxDimension, s.maxDimension, imaging.Lanczos)
}

func (s *FileStore) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	path, err := s.resolve(ref)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrAssetNotFound
		}
		return nil, fmt.Errorf("failed to open photo: %w", err)
	}
	return f, nil
}

// Delete removes a stored photo; a missing file reports ErrAssetNotFound
func (s *FileStore) Delete(ctx context.Context, ref string) error {
	path, err := s.resolve(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrAssetNotFound
		}
		return fmt.Errorf("failed to delete photo: %w", err)
	}
	return nil
}

func (s *FileStore) resolve(ref string) (string, error) {
	local := filepath.FromSlash(ref)
	if ref == "" || !filepath.IsLocal(local) {
		return "", ErrInvalidRef
	}
	return filepath.Join(s.root, local), nil
}
