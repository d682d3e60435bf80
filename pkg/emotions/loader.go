package emotions

import (
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FrameDecoder turns an image file into a display-ready bitmap.
// Implementations resize to the panel resolution.
type FrameDecoder interface {
	DecodeFrame(path string) (image.Image, error)
}

// Library locates per-emotion frame directories under a root directory:
//
//	<root>/happy/000.png
//	<root>/happy/001.png
//	<root>/sad/...
type Library struct {
	root    string
	decoder FrameDecoder
}

// NewLibrary creates a library rooted at dir.
func NewLibrary(dir string, decoder FrameDecoder) *Library {
	return &Library{root: dir, decoder: decoder}
}

// Root returns the asset root directory.
func (l *Library) Root() string {
	return l.root
}

// isFrameFile reports whether name looks like a supported image frame.
func isFrameFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".jpg", ".jpeg":
		return true
	}
	return false
}

// FrameNames returns the frame file names of e sorted by name.
// A missing directory is reported as ErrNoFrames, like an empty one.
func (l *Library) FrameNames(e Emotion) ([]string, error) {
	if !e.Animated() {
		return nil, ErrNotAnimated
	}

	dir := filepath.Join(l.root, e.String())
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s (directory %s missing)", ErrNoFrames, e, dir)
		}
		return nil, fmt.Errorf("list frames for %s: %w", e, err)
	}

	var frames []string
	for _, entry := range entries {
		if entry.IsDir() || !isFrameFile(entry.Name()) {
			continue
		}
		frames = append(frames, entry.Name())
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("%w: %s (directory %s empty)", ErrNoFrames, e, dir)
	}

	sort.Strings(frames)
	return frames, nil
}

// LoadFrame decodes one frame of e.
func (l *Library) LoadFrame(e Emotion, name string) (Frame, error) {
	img, err := l.decoder.DecodeFrame(filepath.Join(l.root, e.String(), name))
	if err != nil {
		return Frame{}, fmt.Errorf("decode frame %s/%s: %w", e, name, err)
	}
	return Frame{Name: name, Image: img}, nil
}

// Available returns the animated emotions that have at least one frame.
func (l *Library) Available() []Emotion {
	var out []Emotion
	for _, e := range All() {
		if !e.Animated() {
			continue
		}
		if _, err := l.FrameNames(e); err == nil {
			out = append(out, e)
		}
	}
	return out
}
