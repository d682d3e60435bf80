package robot

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// FrameStore decodes frame files with OpenCV and resizes them to the panel
// resolution.
type FrameStore struct {
	width  int
	height int
}

// NewFrameStore creates a decoder producing width x height bitmaps.
func NewFrameStore(width, height int) *FrameStore {
	return &FrameStore{width: width, height: height}
}

// Load reads path and returns it resized to the panel resolution.
func (s *FrameStore) Load(path string) (image.Image, error) {
	src := gocv.IMRead(path, gocv.IMReadColor)
	if src.Empty() {
		return nil, fmt.Errorf("decode %s: unreadable image", path)
	}
	defer src.Close()

	dst := gocv.NewMat()
	defer dst.Close()
	gocv.Resize(src, &dst, image.Pt(s.width, s.height), 0, 0, gocv.InterpolationArea)

	img, err := dst.ToImage()
	if err != nil {
		return nil, fmt.Errorf("convert %s: %w", path, err)
	}
	return img, nil
}

// DecodeFrame implements emotions.FrameDecoder.
func (s *FrameStore) DecodeFrame(path string) (image.Image, error) {
	return s.Load(path)
}
