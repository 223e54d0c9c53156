// Package audio describes the audio file a user selected for transcription.
package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/alkime/scribe/pkg/collections"
	"github.com/gabriel-vasile/mimetype"
)

// ErrIsDirectory is returned when a directory is selected instead of a file.
var ErrIsDirectory = errors.New("selected path is a directory")

// byExtension maps the extensions the transcription service accepts to the
// media type declared for them when content sniffing is inconclusive.
var byExtension = map[string]string{
	"aac":  "audio/aac",
	"flac": "audio/flac",
	"m4a":  "audio/mp4",
	"mp3":  "audio/mpeg",
	"mp4":  "audio/mp4",
	"mpeg": "audio/mpeg",
	"mpga": "audio/mpeg",
	"oga":  "audio/ogg",
	"ogg":  "audio/ogg",
	"opus": "audio/opus",
	"wav":  "audio/wav",
	"webm": "audio/webm",
}

// Extensions returns the accepted audio extensions with a leading dot, sorted.
func Extensions() []string {
	exts := make([]string, 0, len(byExtension))
	for ext := range byExtension {
		exts = append(exts, ext)
	}

	slices.Sort(exts)

	return collections.Apply(exts, func(ext string) string { return "." + ext })
}

// File is a handle to a selected audio blob. It is a plain value: copies
// refer to the same underlying file or byte slice.
type File struct {
	// Name is the display name and the filename sent to the service.
	Name string
	// MediaType is the declared media category, normally audio/*.
	MediaType string
	// Size is the blob size in bytes.
	Size int64

	path string
	data []byte
}

// FromPath builds a File for a file on disk.
func FromPath(path string) (File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return File{}, fmt.Errorf("failed to stat audio file: %w", err)
	}

	if info.IsDir() {
		return File{}, fmt.Errorf("%s: %w", path, ErrIsDirectory)
	}

	detected, err := mimetype.DetectFile(path)
	if err != nil {
		return File{}, fmt.Errorf("failed to detect media type of %s: %w", path, err)
	}

	return File{
		Name:      filepath.Base(path),
		MediaType: declaredType(detected, path),
		Size:      info.Size(),
		path:      path,
	}, nil
}

// FromBytes builds a File backed by an in-memory blob.
func FromBytes(name string, data []byte) File {
	return File{
		Name:      name,
		MediaType: declaredType(mimetype.Detect(data), name),
		Size:      int64(len(data)),
		data:      data,
	}
}

// Open returns a fresh reader over the file contents.
func (f File) Open() (io.ReadCloser, error) {
	if f.path == "" {
		return io.NopCloser(bytes.NewReader(f.data)), nil
	}

	file, err := os.Open(f.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file %s: %w", f.path, err)
	}

	return file, nil
}

// Path returns the on-disk location, or "" for in-memory files.
func (f File) Path() string {
	return f.path
}

// IsAudio reports whether the declared media type is in the audio family.
func (f File) IsAudio() bool {
	return strings.HasPrefix(f.MediaType, "audio/")
}

func declaredType(detected *mimetype.MIME, name string) string {
	mediaType, _, _ := strings.Cut(detected.String(), ";")
	if strings.HasPrefix(mediaType, "audio/") {
		return mediaType
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if declared, ok := byExtension[ext]; ok {
		return declared
	}

	return mediaType
}
