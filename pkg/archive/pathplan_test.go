// SPDX-License-Identifier: MPL-2.0

package archive

import (
	"errors"
	"strings"
	"testing"
)

func TestNormalizePath_WithoutValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want string
	}{
		{raw: "../../a/b", want: "a/b"},
		{raw: "./a/b/", want: "a/b"},
		{raw: `..\..\a\b`, want: "a/b"},
		{raw: "/abs/path", want: "abs/path"},
		{raw: ".../a", want: "a"},
		{raw: "a/../b", want: "a/../b"},
		{raw: "plugins/", want: "plugins"},
		{raw: "..", want: ""},
		{raw: ".hidden/file", want: ".hidden/file"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			t.Parallel()

			got, err := NormalizePath(tt.raw, false)
			if err != nil {
				t.Fatalf("NormalizePath(%q) unexpected error: %v", tt.raw, err)
			}
			if got != tt.want {
				t.Errorf("NormalizePath(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestNormalizePath_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{name: "plain path", raw: "plugins/Mod.dll"},
		{name: "dotfile", raw: "config/.keep"},
		{name: "colon", raw: "a/b:c", wantErr: true},
		{name: "asterisk", raw: "a/*.dll", wantErr: true},
		{name: "pipe", raw: "a|b", wantErr: true},
		{name: "question mark", raw: "what?", wantErr: true},
		{name: "quote", raw: `say"hi"`, wantErr: true},
		{name: "angle brackets", raw: "<tag>", wantErr: true},
		{name: "control char", raw: "a/b\tc", wantErr: true},
		{name: "bell char", raw: "a\x07", wantErr: true},
		{name: "dot-only inner segment", raw: "a/../b", wantErr: true},
		{name: "empty inner segment", raw: "a//b", wantErr: true},
		{name: "empty path", raw: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := NormalizePath(tt.raw, true)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NormalizePath(%q, true) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
			if !tt.wantErr {
				return
			}
			if !errors.Is(err, ErrInvalidPath) {
				t.Errorf("error should wrap ErrInvalidPath, got %v", err)
			}
			var pathErr *InvalidPathError
			if !errors.As(err, &pathErr) {
				t.Fatalf("error should be *InvalidPathError, got %T", err)
			}
			if pathErr.Original != tt.raw {
				t.Errorf("Original = %q, want %q", pathErr.Original, tt.raw)
			}
		})
	}
}

func TestInvalidPathError_MentionsBothForms(t *testing.T) {
	t.Parallel()

	_, err := NormalizePath(`..\a\b:c`, true)
	if err == nil {
		t.Fatal("expected error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "a/b:c") || !strings.Contains(msg, `..\\a\\b:c`) {
		t.Errorf("error should mention parsed and original paths, got %q", msg)
	}
}

func TestJoinTarget(t *testing.T) {
	t.Parallel()

	tests := []struct {
		target, rel, want string
	}{
		{target: "", rel: "a.txt", want: "a.txt"},
		{target: "plugins", rel: "a.txt", want: "plugins/a.txt"},
		{target: "plugins/", rel: "sub/a.txt", want: "plugins/sub/a.txt"},
		{target: `BepInEx\plugins`, rel: "a.dll", want: "BepInEx/plugins/a.dll"},
	}

	for _, tt := range tests {
		if got := JoinTarget(tt.target, tt.rel); got != tt.want {
			t.Errorf("JoinTarget(%q, %q) = %q, want %q", tt.target, tt.rel, got, tt.want)
		}
	}
}
