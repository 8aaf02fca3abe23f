package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRemoveIllegalCharsInPathName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"normal title", "normal title"},
		{`a<b>c:d"e/f\g|h?i*j`, "a-b-c-d-e-f-g-h-i-j"},
		{"  padded  ", "padded"},
		{"trailing dots...", "trailing dots"},
		{"???", "---"},
		{"", "untitled"},
	}
	for _, test := range tests {
		if got := RemoveIllegalCharsInPathName(test.input); got != test.expected {
			t.Errorf("RemoveIllegalCharsInPathName(%q) = %q, expected %q", test.input, got, test.expected)
		}
	}
}

func TestUniquePath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "photo.png")

	if got := UniquePath(path); got != path {
		t.Errorf("free path should be returned unchanged, got %q", got)
	}

	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	got := UniquePath(path)
	if got != filepath.Join(dir, "photo_1.png") {
		t.Errorf("UniquePath = %q", got)
	}

	if err := os.WriteFile(got, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if got = UniquePath(path); got != filepath.Join(dir, "photo_2.png") {
		t.Errorf("UniquePath second collision = %q", got)
	}
}

func TestUniqueDirPath(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "Alice")
	if got := UniqueDirPath(target); got != target {
		t.Errorf("free dir should be returned unchanged, got %q", got)
	}
	if err := os.Mkdir(target, 0755); err != nil {
		t.Fatal(err)
	}
	if got := UniqueDirPath(target); got != target+"_1" {
		t.Errorf("UniqueDirPath = %q", got)
	}
}

func TestRemoveDirIfEmpty(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty")
	full := filepath.Join(dir, "full")
	if err := os.Mkdir(empty, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(full, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(full, "f.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	RemoveDirIfEmpty(empty)
	RemoveDirIfEmpty(full)

	if PathExists(empty) {
		t.Error("empty dir should be removed")
	}
	if !PathExists(full) {
		t.Error("non-empty dir should stay")
	}
}

func TestRemoveExtFromFilename(t *testing.T) {
	if got := RemoveExtFromFilename("photo.final.png"); got != "photo.final" {
		t.Errorf("got %q", got)
	}
	if got := RemoveExtFromFilename("noext"); got != "noext" {
		t.Errorf("got %q", got)
	}
}
