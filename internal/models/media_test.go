package models

import "testing"

// TestMediaRecordKind verifies kind derivation from the MIME type.
func TestMediaRecordKind(t *testing.T) {
	tests := []struct {
		name     string
		mimeType string
		want     MediaKind
	}{
		{name: "jpeg", mimeType: "image/jpeg", want: MediaKindImage},
		{name: "webp", mimeType: "image/webp", want: MediaKindImage},
		{name: "png", mimeType: "image/png", want: MediaKindImage},
		{name: "mp4", mimeType: "video/mp4", want: MediaKindVideo},
		{name: "webm", mimeType: "video/webm", want: MediaKindVideo},
		{name: "pdf", mimeType: "application/pdf", want: MediaKindDocument},
		{name: "empty", mimeType: "", want: MediaKindDocument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &MediaRecord{MimeType: tt.mimeType}
			if got := m.Kind(); got != tt.want {
				t.Errorf("Kind() = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestNormalizeDirectory verifies lower-casing and the default bucket.
func TestNormalizeDirectory(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "mixed case", in: "Stuttgart", want: "stuttgart"},
		{name: "upper case", in: "BERLIN", want: "berlin"},
		{name: "already lower", in: "mannheim", want: "mannheim"},
		{name: "empty", in: "", want: DefaultDirectory},
		{name: "whitespace only", in: "   ", want: DefaultDirectory},
		{name: "trims", in: " Ulm ", want: "ulm"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeDirectory(tt.in); got != tt.want {
				t.Errorf("NormalizeDirectory(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

// TestEditParamsIsZero verifies identity detection for edit requests.
func TestEditParamsIsZero(t *testing.T) {
	deg := 90.0

	var nilParams *EditParams
	if !nilParams.IsZero() {
		t.Error("nil params should be zero")
	}
	if !(&EditParams{}).IsZero() {
		t.Error("empty params should be zero")
	}
	if !(&EditParams{Filter: FilterNormal}).IsZero() {
		t.Error("normal filter should be zero")
	}
	if (&EditParams{Rotation: &deg}).IsZero() {
		t.Error("rotation should not be zero")
	}
	if (&EditParams{Filter: FilterSepia}).IsZero() {
		t.Error("sepia filter should not be zero")
	}
}
