package types

import (
	"context"
	"time"
)

// Frame is one capture of the decode surface. Pixels are 4-channel RGBA
// with a row stride of Width*4. Immutable after creation.
type Frame struct {
	Pixels []byte
	Width  int
	Height int

	// SourceWidth and SourceHeight are the decode surface dimensions at
	// capture time, regardless of the capture policy.
	SourceWidth  int
	SourceHeight int

	// Timestamp is the source-media position of the frame.
	Timestamp time.Duration
}

const FrameChannels = 4

func (f *Frame) IsValid() bool {
	return f != nil &&
		f.Width > 0 && f.Height > 0 &&
		len(f.Pixels) == f.Width*f.Height*FrameChannels
}

// VideoFrame is the payload of the videoFrame notification.
type VideoFrame struct {
	Data      []byte
	Width     int
	Height    int
	Format    PixelFormat
	Timestamp time.Duration
}

type ListenerID uint64

type FuncVideoFrameListener func(ctx context.Context, frame VideoFrame)
