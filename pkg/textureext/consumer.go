package textureext

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/videotexture/pkg/clock"
	"github.com/xaionaro-go/videotexture/pkg/videotexture/types"
)

type FuncUpload func(ctx context.Context, target types.TargetSpec, frame []byte)

// Consumer drains one frame per interval from the binding of a source,
// simulating a render loop uploading textures.
type Consumer struct {
	Source   *types.TextureSource
	Interval time.Duration
	Upload   FuncUpload

	consumed atomic.Uint64
	starved  atomic.Uint64
}

func NewConsumer(
	source *types.TextureSource,
	interval time.Duration,
	upload FuncUpload,
) *Consumer {
	return &Consumer{
		Source:   source,
		Interval: interval,
		Upload:   upload,
	}
}

func (c *Consumer) Consumed() uint64 {
	return c.consumed.Load()
}

// Starved is the number of render ticks without a frame to upload.
func (c *Consumer) Starved() uint64 {
	return c.starved.Load()
}

// Serve blocks until ctx is cancelled.
func (c *Consumer) Serve(ctx context.Context) error {
	logger.Debugf(ctx, "Serve")
	defer logger.Debugf(ctx, "/Serve")

	t := clock.Get().Ticker(c.Interval)
	defer t.Stop()

	var buf []byte
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
		c.consumeOne(ctx, &buf)
	}
}

func (c *Consumer) consumeOne(ctx context.Context, buf *[]byte) bool {
	binding := c.Source.Binding()
	if binding == nil {
		c.starved.Add(1)
		return false
	}
	size := binding.Target.FrameByteSize
	if cap(*buf) < size {
		*buf = make([]byte, size)
	}
	frame := (*buf)[:size]
	if binding.ReadFrame(frame) == 0 {
		c.starved.Add(1)
		return false
	}
	c.consumed.Add(1)
	if c.Upload != nil {
		c.Upload(ctx, binding.Target, frame)
	}
	return true
}
