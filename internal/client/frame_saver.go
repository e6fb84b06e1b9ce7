package client

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"

	"ovdlink/internal/protocol"
)

// ToImage converts a frame to an image. With swapRB the pixels are read as
// BGRA, the layout some compositors hand over.
func ToImage(f protocol.Frame, swapRB bool) (*image.NRGBA, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	img := image.NewNRGBA(image.Rect(0, 0, int(f.Width), int(f.Height)))
	copy(img.Pix, f.Pixels)
	if swapRB {
		for i := 0; i+3 < len(img.Pix); i += 4 {
			img.Pix[i], img.Pix[i+2] = img.Pix[i+2], img.Pix[i]
		}
	}
	return img, nil
}

func WritePNG(w io.Writer, f protocol.Frame, swapRB bool) error {
	img, err := ToImage(f, swapRB)
	if err != nil {
		return err
	}
	return png.Encode(w, img)
}

// FrameSaver writes received frames to a directory as PNG files.
type FrameSaver struct {
	outputDir string
	swapRB    bool
	saved     atomic.Uint64
}

func NewFrameSaver(outputDir string, swapRB bool) (*FrameSaver, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &FrameSaver{outputDir: outputDir, swapRB: swapRB}, nil
}

// Save writes f as frame_{seq}_{eye}.png and returns the file path.
func (s *FrameSaver) Save(seq int, f protocol.Frame) (string, error) {
	if err := f.Validate(); err != nil {
		return "", err
	}
	eye := "left"
	if f.Eye == protocol.EyeRight {
		eye = "right"
	}
	path := filepath.Join(s.outputDir, fmt.Sprintf("frame_%06d_%s.png", seq, eye))

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	if err := WritePNG(file, f, s.swapRB); err != nil {
		file.Close()
		return "", fmt.Errorf("failed to encode png: %w", err)
	}
	if err := file.Close(); err != nil {
		return "", err
	}
	s.saved.Add(1)
	return path, nil
}

func (s *FrameSaver) Saved() uint64 {
	return s.saved.Load()
}
