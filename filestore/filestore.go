// Package filestore writes uploaded images and their compressions under a
// per-user directory tree and performs the decode/resize/re-encode work.
package filestore

import (
	"errors"
	"fmt"
	"image/png"
	"io"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"github.com/arjunmehta14/image-press/models"
)

type Store struct {
	Root string
}

func New(root string) *Store {
	return &Store{Root: root}
}

// EnsureDir creates every missing segment of a nested path. It is a no-op
// when the directory already exists.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0o755)
}

func (s *Store) userDir(userID string) string {
	return filepath.Join(s.Root, userID)
}

func (s *Store) compressionDir(userID string) string {
	return filepath.Join(s.Root, userID, "compressions")
}

// StoreImage decodes the uploaded bytes, re-encodes them into a fresh file
// under {root}/{userID}/{name}-{uuid}.{ext}, and returns the new record.
// The random suffix keeps concurrent uploads of the same display name from
// colliding. Size is the uploaded byte count, not the re-encoded one.
// Validation of name, size, and extension happens at the HTTP boundary.
func (s *Store) StoreImage(user models.SafeUser, name, extension string, file io.Reader, size int64) (models.UserImage, error) {
	img, err := imaging.Decode(file)
	if err != nil {
		return models.UserImage{}, fmt.Errorf("decode uploaded image: %w", err)
	}

	dir := s.userDir(user.ID)
	if err := EnsureDir(dir); err != nil {
		return models.UserImage{}, fmt.Errorf("create user directory: %w", err)
	}

	outPath := filepath.Join(dir, fmt.Sprintf("%s-%s.%s", name, uuid.NewString(), extension))
	if err := imaging.Save(img, outPath); err != nil {
		return models.UserImage{}, fmt.Errorf("save image: %w", err)
	}

	return models.UserImage{
		ID:         uuid.NewString(),
		UserID:     user.ID,
		Path:       outPath,
		Name:       name,
		Extension:  extension,
		Size:       size,
		UploadedAt: time.Now().Format(models.DateLayout),
	}, nil
}

// DeleteImageFile unlinks the stored file. A missing file is logged and
// swallowed; any other filesystem error propagates.
func (s *Store) DeleteImageFile(image models.UserImage) error {
	return removeQuietly(image.Path, image.ID)
}

// CreateCompression loads the source image, optionally resizes it
// preserving aspect ratio, re-encodes it by format rule, and writes the
// result under {root}/{userID}/compressions/. The recorded byte size is
// measured from the file on disk after the write.
func (s *Store) CreateCompression(user models.SafeUser, image models.UserImage, quality, resizeWidth int) (models.UserImageCompression, error) {
	src, err := imaging.Open(image.Path)
	if err != nil {
		return models.UserImageCompression{}, fmt.Errorf("open source image: %w", err)
	}

	out := src
	if resizeWidth > 0 {
		b := src.Bounds()
		height := int(math.Round(float64(b.Dy()) * float64(resizeWidth) / float64(b.Dx())))
		out = imaging.Resize(src, resizeWidth, height, imaging.Lanczos)
	}

	dir := s.compressionDir(user.ID)
	if err := EnsureDir(dir); err != nil {
		return models.UserImageCompression{}, fmt.Errorf("create compressions directory: %w", err)
	}
	outPath := filepath.Join(dir, fmt.Sprintf("%s-%s.%s", image.Name, uuid.NewString(), image.Extension))

	// JPEG is lossy with the requested quality; PNG and GIF re-encode
	// losslessly and ignore quality.
	switch image.Extension {
	case "jpeg":
		err = imaging.Save(out, outPath, imaging.JPEGQuality(quality))
	case "png":
		err = imaging.Save(out, outPath, imaging.PNGCompressionLevel(png.BestCompression))
	default:
		err = imaging.Save(out, outPath)
	}
	if err != nil {
		return models.UserImageCompression{}, fmt.Errorf("save compression: %w", err)
	}

	info, err := os.Stat(outPath)
	if err != nil {
		return models.UserImageCompression{}, fmt.Errorf("stat compression: %w", err)
	}

	return models.UserImageCompression{
		ID:          uuid.NewString(),
		ImageID:     image.ID,
		Path:        outPath,
		Quality:     quality,
		ResizeWidth: resizeWidth,
		CreatedAt:   time.Now().Format(models.DateLayout),
		Size:        info.Size(),
	}, nil
}

// DeleteCompressionFile unlinks the compression file with the same
// best-effort semantics as DeleteImageFile.
func (s *Store) DeleteCompressionFile(c models.UserImageCompression) error {
	return removeQuietly(c.Path, c.ID)
}

func removeQuietly(path, recordID string) error {
	err := os.Remove(path)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Warn("attempted to delete non-existent file", "id", recordID, "path", path)
		return nil
	}
	return err
}
