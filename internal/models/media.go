package models

import (
	"strings"
	"time"
)

// DefaultDirectory is the grouping bucket assigned to media records that
// were stored without an explicit directory.
const DefaultDirectory = "general"

// MediaKind classifies a media record by what operations make sense for it.
// Images can be edited and thumbnailed; videos and documents are stored as-is.
type MediaKind string

const (
	MediaKindImage    MediaKind = "image"
	MediaKindVideo    MediaKind = "video"
	MediaKindDocument MediaKind = "document"
)

// MediaRecord is one entry in the media catalog. The JSON field names match
// the backing document format of the original deployment so existing
// media-database.json files load and migrate in place.
type MediaRecord struct {
	ID              string      `json:"id"`
	Filename        string      `json:"filename"`
	OriginalName    string      `json:"originalName"`
	Path            string      `json:"path"`
	ThumbnailPath   string      `json:"thumbnailPath,omitempty"`
	Size            int64       `json:"size"`
	Width           int         `json:"width"`
	Height          int         `json:"height"`
	MimeType        string      `json:"mimeType"`
	OriginalFormat  string      `json:"originalFormat,omitempty"`
	ConvertedFormat string      `json:"convertedFormat,omitempty"`
	Directory       string      `json:"directory"`
	Tags            []string    `json:"tags"`
	AltText         string      `json:"altText,omitempty"`
	Description     string      `json:"description,omitempty"`
	UploadedAt      time.Time   `json:"uploadedAt"`
	UpdatedAt       time.Time   `json:"updatedAt"`
	Optimized       bool        `json:"optimized,omitempty"`
	Edits           *EditParams `json:"edits,omitempty"`
	EditedFrom      string      `json:"editedFrom,omitempty"`
}

// Kind derives the record's media kind from its MIME type.
func (m *MediaRecord) Kind() MediaKind {
	switch {
	case strings.HasPrefix(m.MimeType, "image/"):
		return MediaKindImage
	case strings.HasPrefix(m.MimeType, "video/"):
		return MediaKindVideo
	default:
		return MediaKindDocument
	}
}

// HasTag reports whether the record carries the given tag (exact match).
func (m *MediaRecord) HasTag(tag string) bool {
	for _, t := range m.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// NormalizeDirectory lower-cases a directory name, falling back to
// DefaultDirectory for empty input. Directories are never stored or
// surfaced in mixed case.
func NormalizeDirectory(dir string) string {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return DefaultDirectory
	}
	return strings.ToLower(dir)
}

// MediaUpdate enumerates the fields that may be changed through the catalog's
// update path. Nil fields are left untouched. The record's ID and UploadedAt
// are deliberately not updatable.
type MediaUpdate struct {
	Filename        *string     `json:"filename,omitempty"`
	OriginalName    *string     `json:"originalName,omitempty"`
	Path            *string     `json:"path,omitempty"`
	ThumbnailPath   *string     `json:"thumbnailPath,omitempty"`
	Size            *int64      `json:"size,omitempty"`
	Width           *int        `json:"width,omitempty"`
	Height          *int        `json:"height,omitempty"`
	MimeType        *string     `json:"mimeType,omitempty"`
	ConvertedFormat *string     `json:"convertedFormat,omitempty"`
	Directory       *string     `json:"directory,omitempty"`
	Tags            *[]string   `json:"tags,omitempty"`
	AltText         *string     `json:"altText,omitempty"`
	Description     *string     `json:"description,omitempty"`
	Optimized       *bool       `json:"optimized,omitempty"`
	Edits           *EditParams `json:"edits,omitempty"`
	EditedFrom      *string     `json:"editedFrom,omitempty"`
}

// EditFilter names one of the preset looks the edit pipeline can apply.
type EditFilter string

const (
	FilterNormal    EditFilter = "normal"
	FilterGrayscale EditFilter = "grayscale"
	FilterSepia     EditFilter = "sepia"
	FilterVintage   EditFilter = "vintage"
	FilterCool      EditFilter = "cool"
	FilterWarm      EditFilter = "warm"
)

// EditParams describes one requested edit operation. Absent (nil) fields mean
// "no change on this axis", not "reset to default". Brightness, contrast and
// saturation are percentages where 100 is the identity.
type EditParams struct {
	Rotation   *float64    `json:"rotation,omitempty" validate:"omitempty,gte=-360,lte=360"`
	Brightness *float64    `json:"brightness,omitempty" validate:"omitempty,gte=0,lte=200"`
	Contrast   *float64    `json:"contrast,omitempty" validate:"omitempty,gte=0,lte=200"`
	Saturation *float64    `json:"saturation,omitempty" validate:"omitempty,gte=0,lte=200"`
	Crop       *CropParams `json:"crop,omitempty"`
	Filter     EditFilter  `json:"filter,omitempty" validate:"omitempty,oneof=normal grayscale sepia vintage cool warm"`
}

// CropParams describes a crop region in percentages of the image dimensions
// at the time the crop is applied (after any rotation in the same edit).
type CropParams struct {
	X      float64 `json:"x" validate:"gte=0,lte=100"`
	Y      float64 `json:"y" validate:"gte=0,lte=100"`
	Width  float64 `json:"width" validate:"gte=1,lte=100"`
	Height float64 `json:"height" validate:"gte=1,lte=100"`
}

// Clone returns a deep copy sharing no pointers with the receiver, so a
// caller holding the copy cannot mutate the original through it.
func (p *EditParams) Clone() *EditParams {
	if p == nil {
		return nil
	}
	out := *p
	out.Rotation = cloneFloat(p.Rotation)
	out.Brightness = cloneFloat(p.Brightness)
	out.Contrast = cloneFloat(p.Contrast)
	out.Saturation = cloneFloat(p.Saturation)
	if p.Crop != nil {
		crop := *p.Crop
		out.Crop = &crop
	}
	return &out
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// IsZero reports whether the edit would change nothing.
func (p *EditParams) IsZero() bool {
	if p == nil {
		return true
	}
	return p.Rotation == nil && p.Brightness == nil && p.Contrast == nil &&
		p.Saturation == nil && p.Crop == nil &&
		(p.Filter == "" || p.Filter == FilterNormal)
}
