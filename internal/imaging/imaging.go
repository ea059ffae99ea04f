// Package imaging wraps libvips (via govips) as the image codec for the
// media subsystem: probing dimensions, WebP optimization, thumbnailing,
// and the parameterized edit pipeline applied to bulletin photos.
package imaging

import (
	"fmt"
	"log/slog"

	"github.com/davidbyttow/govips/v2/vips"
)

const (
	// exportQuality is the WebP quality for optimized originals and edits.
	exportQuality = 85

	// thumbQuality is the WebP quality for generated thumbnails.
	thumbQuality = 80

	// ThumbnailSize is the default square thumbnail box in pixels.
	ThumbnailSize = 300
)

// Metadata describes a decoded image without keeping the pixels around.
type Metadata struct {
	Width  int
	Height int
	Format string
}

// Startup initialises the libvips library. Call once at application start.
// concurrency controls the number of libvips worker threads (0 = auto).
func Startup(concurrency int) {
	cfg := &vips.Config{
		ConcurrencyLevel: concurrency,
		MaxCacheSize:     100,
		MaxCacheMem:      50 * 1024 * 1024, // 50 MB
	}
	vips.LoggingSettings(nil, vips.LogLevelWarning)
	vips.Startup(cfg)
	slog.Info("libvips started", "version", vips.Version)
}

// Shutdown releases libvips resources. Call at application shutdown.
func Shutdown() {
	vips.Shutdown()
}

// Probe decodes just enough of the image to report its dimensions and
// source format. Undecodable input is a codec error.
func Probe(data []byte) (*Metadata, error) {
	img, err := vips.NewImageFromBuffer(data)
	if err != nil {
		return nil, fmt.Errorf("imaging: probe: %w", err)
	}
	defer img.Close()

	return &Metadata{
		Width:  img.Width(),
		Height: img.Height(),
		Format: vips.ImageTypes[img.Format()],
	}, nil
}

// Optimize re-encodes an image to WebP at the standard export quality,
// stripping metadata. Used at upload time so the portal serves web-sized
// assets instead of camera originals.
func Optimize(data []byte) ([]byte, *Metadata, error) {
	img, err := vips.NewImageFromBuffer(data)
	if err != nil {
		return nil, nil, fmt.Errorf("imaging: decode: %w", err)
	}
	defer img.Close()

	// Honour EXIF orientation before the metadata is stripped.
	if err := img.AutoRotate(); err != nil {
		return nil, nil, fmt.Errorf("imaging: autorotate: %w", err)
	}

	buf, meta, err := exportWebp(img, exportQuality)
	if err != nil {
		return nil, nil, err
	}
	return buf, meta, nil
}

// CreateThumbnail produces a cover-fit thumbnail of exactly width x height:
// the image is scaled and centre-cropped to fill the box with no
// letterboxing, then encoded as WebP at thumbnail quality.
func CreateThumbnail(data []byte, width, height int) ([]byte, error) {
	if width <= 0 {
		width = ThumbnailSize
	}
	if height <= 0 {
		height = ThumbnailSize
	}

	img, err := vips.NewThumbnailFromBuffer(data, width, height, vips.InterestingCentre)
	if err != nil {
		return nil, fmt.Errorf("imaging: thumbnail: %w", err)
	}
	defer img.Close()

	if err := img.AutoRotate(); err != nil {
		return nil, fmt.Errorf("imaging: thumbnail autorotate: %w", err)
	}

	buf, _, err := exportWebp(img, thumbQuality)
	return buf, err
}

// exportWebp encodes the image as lossy WebP at the given quality with
// metadata stripped.
func exportWebp(img *vips.ImageRef, quality int) ([]byte, *Metadata, error) {
	params := vips.NewWebpExportParams()
	params.Quality = quality
	params.Lossless = false
	params.StripMetadata = true

	buf, meta, err := img.ExportWebp(params)
	if err != nil {
		return nil, nil, fmt.Errorf("imaging: export webp: %w", err)
	}
	return buf, &Metadata{Width: meta.Width, Height: meta.Height, Format: "webp"}, nil
}
