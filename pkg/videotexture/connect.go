package videotexture

import (
	"context"
	"fmt"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/videotexture/pkg/framefeed"
	"github.com/xaionaro-go/videotexture/pkg/videotexture/types"
	"github.com/xaionaro-go/xsync"
)

// ConnectVideoTexture binds the ring buffer of sourceID, using the texture
// metadata as the TargetSpec. Rebinding while playing stops the current
// cadence before the new TargetSpec is installed and restarts it afterwards.
func (p *Pipeline) ConnectVideoTexture(
	ctx context.Context,
	ext types.TextureExtension,
	sourceID types.SourceID,
) (_err error) {
	ctx = p.ctx(ctx)
	logger.Debugf(ctx, "ConnectVideoTexture(ctx, ext, '%s')", sourceID)
	defer func() { logger.Debugf(ctx, "/ConnectVideoTexture(ctx, ext, '%s'): %v", sourceID, _err) }()

	return xsync.DoR1(ctx, &p.locker, func() error {
		switch state := p.State(); {
		case state == types.StateDisposed:
			return nil
		case !state.IsReady():
			return types.ErrNotReady{State: state}
		}
		if ext == nil {
			return fmt.Errorf("texture extension is not set")
		}

		texture, ok := ext.Texture(sourceID)
		if !ok || texture == nil {
			return types.ErrNotFound{Kind: "texture", SourceID: sourceID}
		}
		source, ok := ext.Source(sourceID)
		if !ok || source == nil {
			return types.ErrNotFound{Kind: "texture source", SourceID: sourceID}
		}
		if source.RingBuffer == nil {
			return types.ErrNoBuffer{}
		}
		target := texture.TargetSpec()
		if err := target.Validate(); err != nil {
			return fmt.Errorf("texture '%s' has unusable metadata: %w", sourceID, err)
		}

		binding := types.NewRingBufferBinding(sourceID, source.RingBuffer, source.MaxFrames, target)
		maxFrames := framefeed.MaxFrames(binding)
		if maxFrames <= 0 {
			return fmt.Errorf(
				"the ring buffer of '%s' (%d bytes) cannot hold a single %s frame",
				sourceID, source.RingBuffer.Capacity(), target,
			)
		}
		if maxFrames != source.MaxFrames {
			logger.Debugf(ctx, "adjusted maxFrames of '%s': %d -> %d", sourceID, source.MaxFrames, maxFrames)
		}
		binding.MaxFrames = maxFrames

		p.pacing.Stop()
		p.inheritResidentFramesLocked(ctx, binding)
		p.binding.Store(binding)
		source.SetBinding(binding)
		if p.State() == types.StatePlaying {
			p.startPacingLocked(ctx)
		}
		logger.Debugf(ctx, "bound '%s' with %s, up to %d frames", sourceID, target, maxFrames)
		return nil
	})
}

// inheritResidentFramesLocked keeps the frame count when rebinding the same
// ring buffer with the same format, and empties it otherwise, since frames of
// another size would break the framing.
func (p *Pipeline) inheritResidentFramesLocked(
	ctx context.Context,
	binding *types.RingBufferBinding,
) {
	prev := p.binding.Load()
	if prev == nil || prev.Buffer != binding.Buffer {
		return
	}
	if prev.Target == binding.Target {
		binding.SetCount(prev.Count())
		frame := make([]byte, binding.Target.FrameByteSize)
		for binding.Count() > binding.MaxFrames && binding.ReadFrame(frame) > 0 {
		}
		return
	}
	discard := make([]byte, 64*1024)
	for binding.Buffer.Pop(discard) > 0 {
	}
	logger.Debugf(ctx, "dropped the frames of the previous format %s", prev.Target)
}

// ConnectAudioSource routes the media element audio into the spatial audio
// source sourceID.
func (p *Pipeline) ConnectAudioSource(
	ctx context.Context,
	ext types.AudioExtension,
	sourceID types.SourceID,
) (_err error) {
	ctx = p.ctx(ctx)
	logger.Debugf(ctx, "ConnectAudioSource(ctx, ext, '%s')", sourceID)
	defer func() { logger.Debugf(ctx, "/ConnectAudioSource(ctx, ext, '%s'): %v", sourceID, _err) }()

	return xsync.DoR1(ctx, &p.locker, func() error {
		switch state := p.State(); {
		case state == types.StateDisposed:
			return nil
		case !state.IsReady():
			return types.ErrNotReady{State: state}
		}
		_, err := p.audio.Connect(ctx, ext, sourceID, p.element)
		return err
	})
}

func (p *Pipeline) AudioBinding() *types.AudioBinding {
	return p.audio.Binding()
}
