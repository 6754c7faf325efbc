package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// MaxAudioFileSize is the per-file upload cap shared by the hosted backends.
const MaxAudioFileSize = 25 * 1024 * 1024 // 25MB

var mimeTypes = map[string]string{
	"mp3":  "audio/mp3",
	"mp4":  "video/mp4",
	"mpeg": "video/mpeg",
	"mpga": "audio/mpeg",
	"m4a":  "audio/mp4",
	"wav":  "audio/wav",
	"webm": "audio/webm",
}

// MIMEType maps an audio file extension to its MIME type, defaulting to
// application/octet-stream for unknown extensions.
func MIMEType(path string) string {
	if mime, ok := mimeTypes[Extension(path)]; ok {
		return mime
	}
	return "application/octet-stream"
}

// Extension returns the lowercase extension of path without the leading dot.
func Extension(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}

// ValidateAudioFile enforces the shared transcriber preconditions before any
// network call: the file exists, fits under maxSize, and carries an extension
// from the provider's supported set.
func ValidateAudioFile(path string, maxSize int64, supportedFormats []string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("%w: file path is required", ErrInvalidInput)
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: audio file not found: %s", ErrInvalidInput, path)
		}
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrInvalidInput, path)
	}

	if info.Size() > maxSize {
		return fmt.Errorf("%w: file size %d exceeds maximum allowed size of %d bytes",
			ErrFileTooLarge, info.Size(), maxSize)
	}

	ext := Extension(path)
	for _, format := range supportedFormats {
		if ext == format {
			return nil
		}
	}
	return fmt.Errorf("%w: %s (supported formats: %s)",
		ErrUnsupportedFormat, ext, strings.Join(supportedFormats, ", "))
}
