package imaging

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/davidbyttow/govips/v2/vips"

	"fahndung/internal/models"
)

// EditResult is the outcome of one edit pipeline run: the re-encoded image
// plus any non-fatal warnings (currently only a skipped out-of-bounds crop).
type EditResult struct {
	Data     []byte
	Width    int
	Height   int
	Format   string
	Warnings []string
}

// identity is the percentage value meaning "no change" for brightness,
// contrast and saturation.
const identity = 100

// ProcessEdits validates the edit parameters, applies the requested
// transforms in a fixed order (rotate, brightness/saturation, contrast,
// crop, filter), and re-encodes the result as WebP.
//
// The order matters: crop coordinates are percentages of the image
// dimensions at the time the crop runs, so a crop after a 90° rotation is
// interpreted against the swapped canvas. An out-of-bounds crop does not
// fail the pipeline; it is skipped and reported in EditResult.Warnings so
// callers can tell a dropped crop apart from an applied one.
func ProcessEdits(data []byte, p *models.EditParams) (*EditResult, error) {
	if err := ValidateEditParams(p); err != nil {
		return nil, err
	}

	img, err := vips.NewImageFromBuffer(data)
	if err != nil {
		return nil, fmt.Errorf("imaging: decode: %w", err)
	}
	defer img.Close()

	var warnings []string

	if p != nil {
		if p.Rotation != nil && *p.Rotation != 0 {
			if err := applyRotation(img, *p.Rotation); err != nil {
				return nil, err
			}
		}

		brightness, saturation := 1.0, 1.0
		adjust := false
		if p.Brightness != nil && *p.Brightness != identity {
			brightness = *p.Brightness / identity
			adjust = true
		}
		if p.Saturation != nil && *p.Saturation != identity {
			saturation = *p.Saturation / identity
			adjust = true
		}
		if adjust {
			if err := img.Modulate(brightness, saturation, 0); err != nil {
				return nil, fmt.Errorf("imaging: modulate: %w", err)
			}
		}

		if p.Contrast != nil && *p.Contrast != identity {
			if err := applyContrast(img, *p.Contrast/identity); err != nil {
				return nil, err
			}
		}

		if p.Crop != nil {
			r, ok := cropRect(p.Crop, img.Width(), img.Height())
			if !ok {
				msg := fmt.Sprintf("crop %vx%v+%v+%v exceeds %dx%d bounds, skipped",
					p.Crop.Width, p.Crop.Height, p.Crop.X, p.Crop.Y, img.Width(), img.Height())
				slog.Warn("edit crop skipped", "reason", msg)
				warnings = append(warnings, msg)
			} else if err := img.ExtractArea(r.Left, r.Top, r.Width, r.Height); err != nil {
				return nil, fmt.Errorf("imaging: crop: %w", err)
			}
		}

		if p.Filter != "" && p.Filter != models.FilterNormal {
			if err := applyFilter(img, p.Filter); err != nil {
				return nil, err
			}
		}
	}

	buf, meta, err := exportWebp(img, exportQuality)
	if err != nil {
		return nil, err
	}

	return &EditResult{
		Data:     buf,
		Width:    meta.Width,
		Height:   meta.Height,
		Format:   meta.Format,
		Warnings: warnings,
	}, nil
}

// applyRotation rotates by the given degrees. Right-angle rotations use the
// lossless fixed rotation; other angles go through a similarity transform
// which grows the canvas to fit.
func applyRotation(img *vips.ImageRef, degrees float64) error {
	normalized := math.Mod(degrees, 360)
	if normalized < 0 {
		normalized += 360
	}

	if normalized == math.Trunc(normalized) && int(normalized)%90 == 0 {
		var angle vips.Angle
		switch int(normalized) {
		case 90:
			angle = vips.Angle90
		case 180:
			angle = vips.Angle180
		case 270:
			angle = vips.Angle270
		default:
			return nil
		}
		if err := img.Rotate(angle); err != nil {
			return fmt.Errorf("imaging: rotate: %w", err)
		}
		return nil
	}

	black := &vips.ColorRGBA{R: 0, G: 0, B: 0, A: 255}
	if err := img.Similarity(1.0, normalized, black, 0, 0, 0, 0); err != nil {
		return fmt.Errorf("imaging: rotate: %w", err)
	}
	return nil
}

// applyContrast scales pixel values around mid-grey: out = in*c + 128(1-c).
// c > 1 increases contrast, c < 1 flattens it, c == 1 is the identity.
func applyContrast(img *vips.ImageRef, c float64) error {
	offset := 128 * (1 - c)
	if err := linearBands(img, c, offset); err != nil {
		return fmt.Errorf("imaging: contrast: %w", err)
	}
	return nil
}

// applyFilter applies one named preset look.
func applyFilter(img *vips.ImageRef, filter models.EditFilter) error {
	var err error
	switch filter {
	case models.FilterGrayscale:
		err = img.ToColorSpace(vips.InterpretationBW)
	case models.FilterSepia:
		err = img.Recomb(sepiaMatrix)
	case models.FilterVintage:
		// Lifted brightness, muted colors, then a warm cast.
		if err = img.Modulate(1.1, 0.8, 0); err == nil {
			err = tint(img, 1.08, 1.02, 0.92)
		}
	case models.FilterCool:
		err = img.Modulate(1, 1, -30)
	case models.FilterWarm:
		err = img.Modulate(1, 1, 30)
	default:
		return nil
	}
	if err != nil {
		return fmt.Errorf("imaging: filter %s: %w", filter, err)
	}
	return nil
}

// sepiaMatrix is the standard sepia color recombination.
var sepiaMatrix = [][]float64{
	{0.3588, 0.7044, 0.1368},
	{0.2990, 0.5870, 0.1140},
	{0.2392, 0.4696, 0.0912},
}

// tint multiplies the color channels by the given factors, leaving any
// alpha channel untouched.
func tint(img *vips.ImageRef, r, g, b float64) error {
	factors := []float64{r, g, b}
	bands := img.Bands()

	a := make([]float64, bands)
	off := make([]float64, bands)
	for i := 0; i < bands; i++ {
		if i < len(factors) {
			a[i] = factors[i]
		} else {
			a[i] = 1 // alpha or extra bands pass through
		}
	}
	return img.Linear(a, off)
}

// linearBands applies out = in*slope + offset to every color band, leaving
// a fourth (alpha) band untouched.
func linearBands(img *vips.ImageRef, slope, offset float64) error {
	bands := img.Bands()
	a := make([]float64, bands)
	b := make([]float64, bands)
	for i := 0; i < bands; i++ {
		if i < 3 {
			a[i] = slope
			b[i] = offset
		} else {
			a[i] = 1
			b[i] = 0
		}
	}
	return img.Linear(a, b)
}

// rect is an absolute pixel crop region.
type rect struct {
	Left   int
	Top    int
	Width  int
	Height int
}

// cropRect converts percentage crop parameters into absolute pixel bounds
// against the current image dimensions. It reports ok=false when the
// resulting region does not fit the image; the caller skips the crop in
// that case rather than failing the edit.
func cropRect(c *models.CropParams, imgWidth, imgHeight int) (rect, bool) {
	r := rect{
		Left:   int(math.Round(c.X / 100 * float64(imgWidth))),
		Top:    int(math.Round(c.Y / 100 * float64(imgHeight))),
		Width:  int(math.Round(c.Width / 100 * float64(imgWidth))),
		Height: int(math.Round(c.Height / 100 * float64(imgHeight))),
	}

	if r.Left < 0 || r.Top < 0 || r.Width <= 0 || r.Height <= 0 {
		return rect{}, false
	}
	if r.Left+r.Width > imgWidth || r.Top+r.Height > imgHeight {
		return rect{}, false
	}
	return r, true
}

// GenerateOptimizedFilename builds a collision-resistant name for an edited
// image: a timestamp plus random suffix for uniqueness, and a short
// descriptive suffix naming which axes changed so the edit is diagnosable
// from the filename alone.
func GenerateOptimizedFilename(edits *models.EditParams) string {
	name := fmt.Sprintf("edited_%d_%s", time.Now().UnixMilli(), randomSuffix())
	if parts := editSuffix(edits); len(parts) > 0 {
		name += "_" + strings.Join(parts, "_")
	}
	return name + ".webp"
}

// editSuffix summarizes which edit axes are active, without echoing full
// parameter structures: r<deg>, b<val>, c<val>, s<val>, the filter name,
// and "crop".
func editSuffix(edits *models.EditParams) []string {
	if edits == nil {
		return nil
	}

	var parts []string
	if edits.Rotation != nil && *edits.Rotation != 0 {
		parts = append(parts, "r"+formatAxis(*edits.Rotation))
	}
	if edits.Brightness != nil && *edits.Brightness != identity {
		parts = append(parts, "b"+formatAxis(*edits.Brightness))
	}
	if edits.Contrast != nil && *edits.Contrast != identity {
		parts = append(parts, "c"+formatAxis(*edits.Contrast))
	}
	if edits.Saturation != nil && *edits.Saturation != identity {
		parts = append(parts, "s"+formatAxis(*edits.Saturation))
	}
	if edits.Filter != "" && edits.Filter != models.FilterNormal {
		parts = append(parts, string(edits.Filter))
	}
	if edits.Crop != nil {
		parts = append(parts, "crop")
	}
	return parts
}

func formatAxis(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// randomSuffix returns 9 random hex characters.
func randomSuffix() string {
	b := make([]byte, 5)
	rand.Read(b)
	return hex.EncodeToString(b)[:9]
}
