package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// checks if a file or directory exists
func PathExists(filepath string) bool {
	_, err := os.Stat(filepath)
	return !os.IsNotExist(err)
}

// Removes any illegal characters in a path name
// to prevent any error with file I/O using the path name
func RemoveIllegalCharsInPathName(dirtyPathName string) string {
	dirtyPathName = strings.TrimSpace(dirtyPathName)
	cleaned := ILLEGAL_PATH_CHARS_REGEX.ReplaceAllString(dirtyPathName, "-")
	cleaned = strings.Trim(cleaned, ". ")
	if cleaned == "" {
		cleaned = "untitled"
	}
	return cleaned
}

// Appends _1, _2, ... to the stem of the given path until it no longer
// exists on disk. Gives up after 100 tries and appends a random 8-hex
// suffix instead.
func UniquePath(path string) string {
	if !PathExists(path) {
		return path
	}

	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	for i := 1; i <= 100; i++ {
		candidate := fmt.Sprintf("%s_%d%s", stem, i, ext)
		if !PathExists(candidate) {
			return candidate
		}
	}
	return fmt.Sprintf("%s_%s%s", stem, RandomHexSuffix(), ext)
}

// Same as UniquePath but for directories that are about to be created.
func UniqueDirPath(dirPath string) string {
	if !PathExists(dirPath) {
		return dirPath
	}
	for i := 1; i <= 100; i++ {
		candidate := fmt.Sprintf("%s_%d", dirPath, i)
		if !PathExists(candidate) {
			return candidate
		}
	}
	return fmt.Sprintf("%s_%s", dirPath, RandomHexSuffix())
}

// Returns the first 8 hex chars of a random UUID.
func RandomHexSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// Reserves a temp download path next to the final file,
// e.g. "photo.png" -> "photo_1a2b3c4d.part".
func TempPartPath(targetDir, stem string) string {
	return filepath.Join(
		targetDir,
		fmt.Sprintf("%s_%s.part", stem, RandomHexSuffix()),
	)
}

// Removes the directory if it exists and contains no entries.
func RemoveDirIfEmpty(dirPath string) {
	entries, err := os.ReadDir(dirPath)
	if err != nil || len(entries) > 0 {
		return
	}
	os.Remove(dirPath)
}

func RemoveExtFromFilename(filename string) string {
	return strings.TrimSuffix(filename, filepath.Ext(filename))
}
