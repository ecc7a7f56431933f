package validation

import (
	"errors"
	"testing"
	"time"
)

type sample struct {
	URL       string     `json:"url" validate:"required,notblank,http_url"`
	Title     string     `json:"title,omitempty" validate:"omitempty,notblank"`
	Colors    []string   `json:"colors,omitempty" validate:"omitempty,dive,color"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty" validate:"omitempty,future"`
}

func TestValidate(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)

	tests := []struct {
		name      string
		in        sample
		wantField string
		wantTag   string
	}{
		{"valid", sample{URL: "https://example.com", Colors: []string{"Red", "blue"}, ExpiresAt: &future}, "", ""},
		{"missing url", sample{}, "url", "required"},
		{"blank url", sample{URL: "   "}, "url", "notblank"},
		{"ftp url", sample{URL: "ftp://example.com"}, "url", "http_url"},
		{"no host", sample{URL: "https://"}, "url", "http_url"},
		{"blank title", sample{URL: "https://example.com", Title: " "}, "title", "notblank"},
		{"unknown color", sample{URL: "https://example.com", Colors: []string{"red", "purple"}}, "colors[1]", "color"},
		{"past expiry", sample{URL: "https://example.com", ExpiresAt: &past}, "expiresAt", "future"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.in)
			field, tag := FirstField(err)
			if field != tt.wantField || tag != tt.wantTag {
				t.Fatalf("got (%q, %q), want (%q, %q); err = %v", field, tag, tt.wantField, tt.wantTag, err)
			}
			if tt.wantField == "" && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestFirstField_NonValidationError(t *testing.T) {
	field, tag := FirstField(errors.New("boom"))
	if field != "" || tag != "" {
		t.Fatalf("got (%q, %q)", field, tag)
	}
}
