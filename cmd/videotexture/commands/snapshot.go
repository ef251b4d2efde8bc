package commands

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/chai2010/webp"
	"github.com/dustin/go-humanize"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/videotexture/pkg/videotexture/types"
)

// snapshotter saves every n-th uploaded texture frame as a WebP file.
type snapshotter struct {
	sourceID types.SourceID
	dir      string
	every    uint64
	quality  float32

	uploaded uint64
}

func newSnapshotter(
	sourceID types.SourceID,
	dir string,
	every uint64,
	quality float32,
) *snapshotter {
	return &snapshotter{
		sourceID: sourceID,
		dir:      dir,
		every:    every,
		quality:  quality,
	}
}

// Upload is a textureext.FuncUpload; it is called from a single consumer
// goroutine.
func (s *snapshotter) Upload(
	ctx context.Context,
	target types.TargetSpec,
	frame []byte,
) {
	s.uploaded++
	if s.dir == "" || s.every == 0 || s.uploaded%s.every != 0 {
		return
	}

	filePath := filepath.Join(s.dir, fmt.Sprintf("%s-%08d.webp", s.sourceID, s.uploaded))
	size, err := s.save(filePath, target, frame)
	if err != nil {
		logger.Errorf(ctx, "unable to save the snapshot '%s': %v", filePath, err)
		return
	}
	logger.Debugf(ctx, "saved the snapshot '%s' (%s)", filePath, humanize.Bytes(uint64(size)))
}

func (s *snapshotter) save(
	filePath string,
	target types.TargetSpec,
	frame []byte,
) (int, error) {
	img, err := frameToImage(target, frame)
	if err != nil {
		return 0, err
	}

	var buf bytes.Buffer
	err = webp.Encode(&buf, img, &webp.Options{
		Lossless: false,
		Quality:  s.quality,
	})
	if err != nil {
		return 0, fmt.Errorf("unable to encode the image: %w", err)
	}

	if err := os.WriteFile(filePath, buf.Bytes(), 0640); err != nil {
		return 0, fmt.Errorf("unable to write the file: %w", err)
	}
	return buf.Len(), nil
}

// frameToImage wraps a packed texture frame into an image without changing
// its pixels, except for BGRA and RGB which get reordered into NRGBA.
func frameToImage(target types.TargetSpec, frame []byte) (image.Image, error) {
	if len(frame) < target.FrameByteSize {
		return nil, fmt.Errorf("the frame is %d bytes, expected %d", len(frame), target.FrameByteSize)
	}
	w, h := target.Width, target.Height
	rect := image.Rect(0, 0, w, h)

	switch target.Format {
	case types.PixelFormatRGBA:
		return &image.RGBA{Pix: frame[:w*h*4], Stride: w * 4, Rect: rect}, nil
	case types.PixelFormatLuminance:
		return &image.Gray{Pix: frame[:w*h], Stride: w, Rect: rect}, nil
	case types.PixelFormatBGRA:
		img := image.NewNRGBA(rect)
		for i := 0; i < w*h*4; i += 4 {
			img.Pix[i+0] = frame[i+2]
			img.Pix[i+1] = frame[i+1]
			img.Pix[i+2] = frame[i+0]
			img.Pix[i+3] = frame[i+3]
		}
		return img, nil
	case types.PixelFormatRGB:
		img := image.NewNRGBA(rect)
		for src, dst := 0, 0; src < w*h*3; src, dst = src+3, dst+4 {
			img.Pix[dst+0] = frame[src+0]
			img.Pix[dst+1] = frame[src+1]
			img.Pix[dst+2] = frame[src+2]
			img.Pix[dst+3] = 0xff
		}
		return img, nil
	default:
		return nil, fmt.Errorf("unsupported pixel format %s", target.Format)
	}
}
