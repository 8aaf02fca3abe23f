package utils

import (
	"path/filepath"
	"strings"
)

// File type labels used by the download filters.
const (
	FILE_TYPE_IMAGE   = "image"
	FILE_TYPE_VIDEO   = "video"
	FILE_TYPE_ARCHIVE = "archive"
	FILE_TYPE_AUDIO   = "audio"
	FILE_TYPE_OTHER   = "other"
)

var extTypeMap = map[string]string{
	".jpg": FILE_TYPE_IMAGE, ".jpeg": FILE_TYPE_IMAGE, ".png": FILE_TYPE_IMAGE,
	".gif": FILE_TYPE_IMAGE, ".bmp": FILE_TYPE_IMAGE, ".webp": FILE_TYPE_IMAGE,
	".tif": FILE_TYPE_IMAGE, ".tiff": FILE_TYPE_IMAGE, ".jfif": FILE_TYPE_IMAGE,
	".heic": FILE_TYPE_IMAGE, ".avif": FILE_TYPE_IMAGE,

	".mp4": FILE_TYPE_VIDEO, ".mkv": FILE_TYPE_VIDEO, ".webm": FILE_TYPE_VIDEO,
	".mov": FILE_TYPE_VIDEO, ".avi": FILE_TYPE_VIDEO, ".wmv": FILE_TYPE_VIDEO,
	".flv": FILE_TYPE_VIDEO, ".m4v": FILE_TYPE_VIDEO, ".mpg": FILE_TYPE_VIDEO,
	".mpeg": FILE_TYPE_VIDEO, ".ts": FILE_TYPE_VIDEO,

	".zip": FILE_TYPE_ARCHIVE, ".rar": FILE_TYPE_ARCHIVE, ".7z": FILE_TYPE_ARCHIVE,
	".tar": FILE_TYPE_ARCHIVE, ".gz": FILE_TYPE_ARCHIVE, ".bz2": FILE_TYPE_ARCHIVE,
	".xz": FILE_TYPE_ARCHIVE, ".zst": FILE_TYPE_ARCHIVE,

	".mp3": FILE_TYPE_AUDIO, ".wav": FILE_TYPE_AUDIO, ".flac": FILE_TYPE_AUDIO,
	".ogg": FILE_TYPE_AUDIO, ".m4a": FILE_TYPE_AUDIO, ".opus": FILE_TYPE_AUDIO,
	".aac": FILE_TYPE_AUDIO, ".aiff": FILE_TYPE_AUDIO,
}

// Classifies a filename into one of the FILE_TYPE_* labels by extension.
func ClassifyFileType(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if fileType, ok := extTypeMap[ext]; ok {
		return fileType
	}
	return FILE_TYPE_OTHER
}

func IsImageFile(filename string) bool {
	return ClassifyFileType(filename) == FILE_TYPE_IMAGE
}

func IsArchiveFile(filename string) bool {
	return ClassifyFileType(filename) == FILE_TYPE_ARCHIVE
}

func IsVideoFile(filename string) bool {
	return ClassifyFileType(filename) == FILE_TYPE_VIDEO
}
