package slug

import "testing"

// TestGenerate exercises the slug generator with a broad range of inputs
// covering typical bulletin titles, special characters, German
// transliteration, and boundary conditions.
func TestGenerate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		// --- Normal titles ---
		{
			name:  "simple two words",
			input: "Vermisste Person",
			want:  "vermisste-person",
		},
		{
			name:  "title with year",
			input: "Zeugenaufruf 2026",
			want:  "zeugenaufruf-2026",
		},
		{
			name:  "already lowercase",
			input: "already lowercase",
			want:  "already-lowercase",
		},
		{
			name:  "mixed case sentence",
			input: "Wer Kennt Diese Person",
			want:  "wer-kennt-diese-person",
		},

		// --- German transliteration ---
		{
			name:  "umlauts become digraphs",
			input: "Vermisste aus Köln",
			want:  "vermisste-aus-koeln",
		},
		{
			name:  "uppercase umlaut",
			input: "Überfall in München",
			want:  "ueberfall-in-muenchen",
		},
		{
			name:  "eszett becomes ss",
			input: "Straßenraub",
			want:  "strassenraub",
		},
		{
			name:  "all four specials",
			input: "Größere Übung für Bären",
			want:  "groessere-uebung-fuer-baeren",
		},

		// --- Special characters ---
		{
			name:  "punctuation marks",
			input: "Wer kennt diese Person? Hinweise erbeten!",
			want:  "wer-kennt-diese-person-hinweise-erbeten",
		},
		{
			name:  "parentheses and brackets",
			input: "Fahndung (aktualisiert) [Foto]",
			want:  "fahndung-aktualisiert-foto",
		},
		{
			name:  "case number with hash",
			input: "Fall #42 am Hauptbahnhof",
			want:  "fall-42-am-hauptbahnhof",
		},
		{
			name:  "slashes dropped",
			input: "Einbruch/Diebstahl",
			want:  "einbruchdiebstahl",
		},

		// --- Whitespace handling ---
		{
			name:  "leading and trailing spaces",
			input: "  hello world  ",
			want:  "hello-world",
		},
		{
			name:  "multiple consecutive spaces collapsed",
			input: "hello    world",
			want:  "hello-world",
		},
		{
			name:  "tabs collapsed",
			input: "hello\tworld",
			want:  "hello-world",
		},
		{
			name:  "newlines collapsed",
			input: "hello\nworld",
			want:  "hello-world",
		},

		// --- Hyphen handling ---
		{
			name:  "leading hyphens",
			input: "---hello world",
			want:  "hello-world",
		},
		{
			name:  "trailing hyphens",
			input: "hello world---",
			want:  "hello-world",
		},
		{
			name:  "multiple hyphens between words",
			input: "hello---world",
			want:  "hello-world",
		},
		{
			name:  "single hyphen preserved",
			input: "well-known fact",
			want:  "well-known-fact",
		},

		// --- Edge cases ---
		{
			name:  "empty string",
			input: "",
			want:  "",
		},
		{
			name:  "only spaces",
			input: "     ",
			want:  "",
		},
		{
			name:  "only hyphens",
			input: "-----",
			want:  "",
		},
		{
			name:  "only special characters",
			input: "!@#$%^&*()",
			want:  "",
		},
		{
			name:  "single character",
			input: "A",
			want:  "a",
		},

		// --- Numbers ---
		{
			name:  "all numbers",
			input: "123456",
			want:  "123456",
		},
		{
			name:  "date-like string",
			input: "2026-02-25",
			want:  "2026-02-25",
		},
		{
			name:  "case number",
			input: "VP-2024-0001 Stuttgart Mitte",
			want:  "vp-2024-0001-stuttgart-mitte",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Generate(tt.input)
			if got != tt.want {
				t.Errorf("Generate(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// TestGenerate_Idempotent verifies that generating a slug from an already
// valid slug produces the same result.
func TestGenerate_Idempotent(t *testing.T) {
	slugs := []string{
		"vermisste-person-aus-stuttgart-mitte",
		"zeugenaufruf-2026",
		"a",
		"123",
	}

	for _, s := range slugs {
		t.Run(s, func(t *testing.T) {
			got := Generate(s)
			if got != s {
				t.Errorf("Generate(%q) = %q, want idempotent result %q", s, got, s)
			}
		})
	}
}

// TestGenerate_ConsistentCase verifies that slugs are always lowercase
// regardless of input casing.
func TestGenerate_ConsistentCase(t *testing.T) {
	inputs := []string{
		"HELLO WORLD",
		"Hello World",
		"hElLo WoRlD",
		"hello world",
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			got := Generate(input)
			if got != "hello-world" {
				t.Errorf("Generate(%q) = %q, want %q", input, got, "hello-world")
			}
		})
	}
}
