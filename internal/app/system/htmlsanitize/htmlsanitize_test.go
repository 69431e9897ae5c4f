package htmlsanitize_test

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/dalemusser/groupshare/internal/app/system/htmlsanitize"
)

func TestName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"plain", "Ann Lee", "Ann Lee"},
		{"trims and collapses", "  Ann \t  Lee \n", "Ann Lee"},
		{"apostrophe survives", "Pat O'Brien", "Pat O'Brien"},
		{"ampersand survives", "Tom & Jerry", "Tom & Jerry"},
		{"strips tags", "<b>Ann</b>", "Ann"},
		{"strips script", "Ann<script>alert('x')</script>", "Ann"},
		{"only markup", "<img src=x onerror=alert(1)>", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := htmlsanitize.Name(tt.in); got != tt.want {
				t.Errorf("Name(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestName_Truncates(t *testing.T) {
	got := htmlsanitize.Name(strings.Repeat("é", 300))
	if n := utf8.RuneCountInString(got); n != htmlsanitize.MaxNameLen {
		t.Errorf("expected %d runes, got %d", htmlsanitize.MaxNameLen, n)
	}
}

func TestText_KeepsLongerContent(t *testing.T) {
	in := strings.Repeat("a", 500)
	if got := htmlsanitize.Text(in); got != in {
		t.Error("expected 500 chars of caption to survive")
	}
}
