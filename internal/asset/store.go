package asset

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/image/draw"

	"github.com/inamate/vecview/internal/typeid"
)

var ErrNotFound = errors.New("asset not found")

// MaxDimension bounds the longer side of stored background images.
const MaxDimension = 4096

// Store keeps background images as PNG files named by asset id.
type Store struct {
	dir string
}

func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create asset dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Put decodes a PNG or JPEG image, downscales it to MaxDimension and
// stores it. It returns the new asset id and the stored image size.
func (s *Store) Put(r io.Reader) (id string, size image.Point, err error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return "", image.Point{}, fmt.Errorf("decode image: %w", err)
	}
	img = fit(img, MaxDimension)

	id = typeid.NewAssetID()
	path := s.path(id)
	out, err := os.Create(path)
	if err != nil {
		return "", image.Point{}, fmt.Errorf("create asset file: %w", err)
	}
	defer out.Close()

	if err := png.Encode(out, img); err != nil {
		os.Remove(path)
		return "", image.Point{}, fmt.Errorf("encode png: %w", err)
	}
	return id, img.Bounds().Size(), nil
}

// Load decodes a stored image.
func (s *Store) Load(id string) (image.Image, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	f, err := os.Open(s.path(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("open asset: %w", err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode asset %s: %w", id, err)
	}
	return img, nil
}

// Delete removes a stored image.
func (s *Store) Delete(id string) error {
	if err := checkID(id); err != nil {
		return err
	}
	if err := os.Remove(s.path(id)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrNotFound
		}
		return err
	}
	slog.Info("asset deleted", "assetID", id)
	return nil
}

// checkID rejects anything but an asset id, so ids never escape the
// store directory.
func checkID(id string) error {
	if err := typeid.Validate(id, typeid.PrefixAsset); err != nil {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return nil
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+".png")
}

// fit scales img down so neither side exceeds limit.
func fit(img image.Image, limit int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= limit && h <= limit {
		return img
	}
	scale := float64(limit) / float64(max(w, h))
	dst := image.NewRGBA(image.Rect(0, 0, max(1, int(float64(w)*scale)), max(1, int(float64(h)*scale))))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
