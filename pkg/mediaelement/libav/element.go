// Package libav is a media element backed by FFmpeg through go-astiav: it
// demuxes and decodes a URL in the background and exposes the picture due
// at the current playback position.
package libav

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/asticode/go-astiav"
	"github.com/facebookincubator/go-belt/tool/experimental/errmon"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/videotexture/pkg/audio/resampler"
	"github.com/xaionaro-go/videotexture/pkg/clock"
	"github.com/xaionaro-go/videotexture/pkg/mediaelement/pcmout"
	"github.com/xaionaro-go/videotexture/pkg/observability"
	"github.com/xaionaro-go/videotexture/pkg/videotexture/types"
	"github.com/xaionaro-go/xcontext"
	"github.com/xaionaro-go/xsync"
)

const (
	OutputSampleRate = 48000
	OutputChannels   = 2

	pollInterval = 10 * time.Millisecond
)

type decodedFrame struct {
	image image.Image
	pts   time.Duration
	gen   uint64
}

// Element locks decodeLocker before locker whenever it needs both.
type Element struct {
	Config Config

	// guarded by decodeLocker
	decodeLocker xsync.Mutex
	input        *input
	decoder      *decoder
	images       imageConverter
	resampler    *resampler.Resampler
	samples      []float32
	startOffset  time.Duration
	hasOffset    bool
	lastVideoPTS time.Duration

	// guarded by locker
	locker        xsync.Mutex
	opened        bool
	closed        bool
	haveData      bool
	frameRate     float64
	width         int
	height        int
	duration      time.Duration
	paused        bool
	ended         bool
	endCh         chan struct{}
	basePos       time.Duration
	playStartedAt time.Time
	pending       *decodedFrame
	current       *decodedFrame
	currentShown  bool
	eof           bool
	endPos        time.Duration
	decodedPos    time.Duration
	stats         types.QualityStats

	seekGen    atomic.Uint64
	seekSignal chan struct{}
	videoQueue chan decodedFrame
	audio      *pcmout.Output
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

var _ types.MediaElement = (*Element)(nil)

func New(opts ...Option) *Element {
	cfg := Options(opts).Config()
	return &Element{
		Config:     cfg,
		paused:     true,
		endCh:      make(chan struct{}),
		seekSignal: make(chan struct{}, 1),
		videoQueue: make(chan decodedFrame, max(cfg.VideoQueueSize, 1)),
		audio: pcmout.New(types.PCMFormat{
			SampleRate: OutputSampleRate,
			Channels:   OutputChannels,
		}, 64),
	}
}

func Factory(opts ...Option) types.MediaElementFactory {
	return types.MediaElementFactoryFunc(func(ctx context.Context) (types.MediaElement, error) {
		return New(opts...), nil
	})
}

func (e *Element) clock() clock.Clock {
	return clock.OrGlobal(e.Config.Clock)
}

func (e *Element) Open(ctx context.Context, url string) (_err error) {
	logger.Debugf(ctx, "Open(ctx, '%s')", url)
	defer func() { logger.Debugf(ctx, "/Open(ctx, '%s'): %v", url, _err) }()

	if err := xsync.DoR1(ctx, &e.locker, func() error {
		switch {
		case e.closed:
			return fmt.Errorf("the element is closed")
		case e.opened:
			return fmt.Errorf("the element is already opened")
		}
		return nil
	}); err != nil {
		return err
	}

	in, err := openInput(ctx, url, e.Config.CustomOptions)
	if err != nil {
		return err
	}
	dec, err := newDecoder(ctx, in)
	if err != nil {
		errmon.ObserveErrorCtx(ctx, in.Close())
		return fmt.Errorf("unable to initialize the decoders: %w", err)
	}

	return xsync.DoR1(ctx, &e.decodeLocker, func() error {
		return xsync.DoR1(ctx, &e.locker, func() error {
			if e.closed || e.opened {
				dec.Close()
				errmon.ObserveErrorCtx(ctx, in.Close())
				return fmt.Errorf("the element was closed or opened concurrently")
			}
			e.input, e.decoder = in, dec
			e.opened = true
			e.duration = in.streamDuration()
			if dec.video != nil {
				params := dec.video.stream.CodecParameters()
				e.width, e.height = params.Width(), params.Height()
				e.frameRate = in.FormatContext.GuessFrameRate(dec.video.stream, nil).Float64()
			}
			logger.Debugf(ctx, "opened '%s': %dx%d@%.3f, duration %v, audio: %t",
				url, e.width, e.height, e.frameRate, e.duration, dec.audio != nil)

			// ctx may be a timeout scoped to the open call.
			loopCtx, cancel := context.WithCancel(xcontext.DetachDone(ctx))
			e.cancel = cancel
			e.wg.Add(2)
			observability.Go(loopCtx, func(ctx context.Context) {
				defer e.wg.Done()
				e.decodeLoop(ctx)
			})
			observability.Go(loopCtx, func(ctx context.Context) {
				defer e.wg.Done()
				e.monitorLoop(ctx)
			})
			return nil
		})
	})
}

func (e *Element) decodeLoop(ctx context.Context) {
	logger.Debugf(ctx, "decodeLoop")
	defer logger.Debugf(ctx, "/decodeLoop")

	for ctx.Err() == nil {
		gen := e.seekGen.Load()
		if !e.waitLookahead(ctx, gen) {
			continue
		}

		var frames []decodedFrame
		var samples []float32
		var lastPos time.Duration
		err := xsync.DoR1(ctx, &e.decodeLocker, func() error {
			if e.seekGen.Load() != gen {
				return nil
			}
			return e.decoder.decodeNext(ctx, e.input, decodedHandler{
				onVideo: func(sd *streamDecoder, f *astiav.Frame) error {
					img, err := e.images.toImage(f)
					if err != nil {
						logger.Warnf(ctx, "skipping a video frame: %v", err)
						return nil
					}
					pts := e.positionOfLocked(sd, f)
					e.lastVideoPTS = pts
					lastPos = max(lastPos, pts)
					frames = append(frames, decodedFrame{image: img, pts: pts, gen: gen})
					return nil
				},
				onAudio: func(sd *streamDecoder, f *astiav.Frame) error {
					out, err := e.audioSamplesLocked(f)
					if err != nil {
						logger.Warnf(ctx, "skipping an audio frame: %v", err)
						return nil
					}
					lastPos = max(lastPos, e.positionOfLocked(sd, f))
					samples = append(samples, out...)
					return nil
				},
			})
		})

		if len(frames) > 0 || len(samples) > 0 {
			e.locker.Do(ctx, func() {
				if e.seekGen.Load() == gen {
					e.decodedPos = max(e.decodedPos, lastPos)
					e.haveData = true
				}
			})
		}
		for _, f := range frames {
			select {
			case e.videoQueue <- f:
			case <-ctx.Done():
				return
			}
		}
		if len(samples) > 0 && !e.audio.OfferSamples(samples) {
			logger.Tracef(ctx, "the audio reader is behind, dropped %d samples", len(samples))
		}

		switch {
		case err == nil:
			continue
		case ctx.Err() != nil:
			return
		case errors.Is(err, io.EOF):
			logger.Debugf(ctx, "reached the end of the input")
		default:
			errmon.ObserveErrorCtx(ctx, fmt.Errorf("decoding failed, treating as the end of the stream: %w", err))
		}
		e.markEOF(ctx, gen)
		select {
		case <-ctx.Done():
			return
		case <-e.seekSignal:
		}
	}
}

// positionOfLocked maps a frame's pts onto the playback timeline, which
// starts at the first decoded frame.
func (e *Element) positionOfLocked(sd *streamDecoder, f *astiav.Frame) time.Duration {
	if f.Pts() == math.MinInt64 {
		return e.lastVideoPTS + e.frameDuration()
	}
	pts := sd.framePosition(f)
	if !e.hasOffset {
		e.startOffset, e.hasOffset = pts, true
	}
	return pts - e.startOffset
}

func (e *Element) frameDuration() time.Duration {
	fps := xsync.DoR1(context.TODO(), &e.locker, func() float64 {
		return e.frameRate
	})
	if fps <= 0 || math.IsNaN(fps) || math.IsInf(fps, 0) {
		return 0
	}
	return time.Duration(float64(time.Second) / fps)
}

func (e *Element) audioSamplesLocked(f *astiav.Frame) ([]float32, error) {
	raw, err := f.Data().Bytes(1)
	if err != nil {
		return nil, fmt.Errorf("unable to get the audio frame data: %w", err)
	}
	in := resampler.Format{
		SampleRate: uint32(f.SampleRate()),
		Channels:   f.ChannelLayout().Channels(),
	}
	e.samples, err = decodeSamples(e.samples[:0], raw, f.SampleFormat(), in.Channels, f.NbSamples())
	if err != nil {
		return nil, err
	}
	if e.resampler == nil || e.resampler.In != in {
		e.resampler, err = resampler.New(in, resampler.Format{
			SampleRate: OutputSampleRate,
			Channels:   OutputChannels,
		})
		if err != nil {
			return nil, err
		}
	}
	return e.resampler.Process(nil, e.samples), nil
}

// waitLookahead blocks while decoding is more than Lookahead ahead of the
// playback position. It returns false if a seek happened meanwhile.
func (e *Element) waitLookahead(ctx context.Context, gen uint64) bool {
	var t *clock.Ticker
	defer func() {
		if t != nil {
			t.Stop()
		}
	}()
	for {
		ahead := xsync.DoR1(ctx, &e.locker, func() bool {
			return e.decodedPos-e.positionLocked() > e.Config.Lookahead
		})
		if e.seekGen.Load() != gen {
			return false
		}
		if !ahead {
			return true
		}
		if t == nil {
			t = e.clock().Ticker(pollInterval)
		}
		select {
		case <-ctx.Done():
			return false
		case <-t.C:
		}
	}
}

func (e *Element) markEOF(ctx context.Context, gen uint64) {
	e.locker.Do(ctx, func() {
		if e.seekGen.Load() != gen {
			return
		}
		e.eof = true
		e.endPos = e.decodedPos + e.frameDurationLocked()
		if e.duration > 0 {
			e.endPos = min(e.endPos, e.duration)
		}
	})
}

func (e *Element) frameDurationLocked() time.Duration {
	if e.frameRate <= 0 || math.IsNaN(e.frameRate) || math.IsInf(e.frameRate, 0) {
		return 0
	}
	return time.Duration(float64(time.Second) / e.frameRate)
}

func (e *Element) monitorLoop(ctx context.Context) {
	logger.Debugf(ctx, "monitorLoop")
	defer logger.Debugf(ctx, "/monitorLoop")

	t := e.clock().Ticker(pollInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		e.locker.Do(ctx, func() {
			e.checkEndLocked(ctx)
		})
	}
}

func (e *Element) checkEndLocked(ctx context.Context) {
	if e.paused || e.ended || !e.eof {
		return
	}
	if e.pending != nil || len(e.videoQueue) > 0 {
		return
	}
	if e.positionLocked() < e.endPos {
		return
	}
	logger.Debugf(ctx, "reached the end of the stream")
	e.basePos = e.endPos
	e.paused = true
	e.ended = true
	close(e.endCh)
}

func (e *Element) positionLocked() time.Duration {
	if e.paused || e.ended {
		return e.basePos
	}
	pos := e.basePos + e.clock().Since(e.playStartedAt)
	if e.eof {
		pos = min(pos, e.endPos)
	}
	return pos
}

func (e *Element) ReadyState() types.ReadyState {
	return xsync.DoR1(context.TODO(), &e.locker, func() types.ReadyState {
		switch {
		case !e.opened || e.closed:
			return types.ReadyStateHaveNothing
		case !e.haveData:
			return types.ReadyStateHaveMetadata
		default:
			return types.ReadyStateHaveEnoughData
		}
	})
}

func (e *Element) FrameRate() float64 {
	return xsync.DoR1(context.TODO(), &e.locker, func() float64 {
		return e.frameRate
	})
}

func (e *Element) VideoSize() (int, int) {
	return xsync.DoR2(context.TODO(), &e.locker, func() (int, int) {
		return e.width, e.height
	})
}

func (e *Element) Paused() bool {
	return xsync.DoR1(context.TODO(), &e.locker, func() bool {
		return e.paused
	})
}

func (e *Element) Ended() bool {
	return xsync.DoR1(context.TODO(), &e.locker, func() bool {
		return e.ended
	})
}

func (e *Element) EndChan() <-chan struct{} {
	return xsync.DoR1(context.TODO(), &e.locker, func() chan struct{} {
		return e.endCh
	})
}

func (e *Element) Play(ctx context.Context) error {
	logger.Debugf(ctx, "Play")
	if e.Ended() {
		if err := e.Seek(ctx, 0); err != nil {
			return fmt.Errorf("unable to rewind: %w", err)
		}
	}
	return xsync.DoR1(ctx, &e.locker, func() error {
		if !e.opened || e.closed {
			return fmt.Errorf("the element is not opened")
		}
		if !e.paused {
			return nil
		}
		e.paused = false
		e.playStartedAt = e.clock().Now()
		return nil
	})
}

func (e *Element) Pause(ctx context.Context) error {
	logger.Debugf(ctx, "Pause")
	e.locker.Do(ctx, func() {
		if e.paused {
			return
		}
		e.basePos = e.positionLocked()
		e.paused = true
	})
	return nil
}

func (e *Element) Seek(ctx context.Context, pos time.Duration) (_err error) {
	logger.Debugf(ctx, "Seek(ctx, %v)", pos)
	defer func() { logger.Debugf(ctx, "/Seek(ctx, %v): %v", pos, _err) }()

	return xsync.DoR1(ctx, &e.decodeLocker, func() error {
		if e.input == nil {
			return fmt.Errorf("the element is not opened")
		}
		pos = max(pos, 0)
		if d := xsync.DoR1(ctx, &e.locker, func() time.Duration { return e.duration }); d > 0 {
			pos = min(pos, d)
		}

		ts := fromDuration(pos+e.startOffset, 1/float64(astiav.TimeBase))
		if err := e.input.FormatContext.SeekFrame(-1, ts, astiav.NewSeekFlags(astiav.SeekFlagBackward)); err != nil {
			return fmt.Errorf("unable to seek to %v: %w", pos, err)
		}
		e.seekGen.Add(1)
		if e.resampler != nil {
			e.resampler.Reset()
		}
		e.lastVideoPTS = pos
		for drained := false; !drained; {
			select {
			case <-e.videoQueue:
			default:
				drained = true
			}
		}
		e.audio.Flush()

		e.locker.Do(ctx, func() {
			e.pending, e.current, e.currentShown = nil, nil, false
			e.eof = false
			e.basePos = pos
			e.decodedPos = pos
			e.playStartedAt = e.clock().Now()
			if e.ended {
				e.ended = false
				e.endCh = make(chan struct{})
			}
		})
		select {
		case e.seekSignal <- struct{}{}:
		default:
		}
		return nil
	})
}

func (e *Element) CurrentTime() time.Duration {
	return xsync.DoR1(context.TODO(), &e.locker, func() time.Duration {
		return e.positionLocked()
	})
}

// CurrentFrame returns the latest decoded picture due at the current
// position. Pictures that became due and were superseded before anyone
// asked for them count as dropped.
func (e *Element) CurrentFrame(ctx context.Context) (image.Image, time.Duration, error) {
	return xsync.DoR3(ctx, &e.locker, func() (image.Image, time.Duration, error) {
		if !e.opened || e.closed {
			return nil, 0, fmt.Errorf("the element is not opened")
		}
		pos := e.positionLocked()
		gen := e.seekGen.Load()
		for {
			if e.pending == nil {
				select {
				case f := <-e.videoQueue:
					if f.gen != gen {
						continue
					}
					e.pending = &f
				default:
				}
			}
			if e.pending == nil || e.pending.pts > pos {
				break
			}
			if e.current != nil && !e.currentShown {
				e.stats.DroppedFrames++
			}
			e.current, e.pending, e.currentShown = e.pending, nil, false
			e.stats.DecodedFrames++
		}
		if e.current == nil {
			return nil, 0, fmt.Errorf("no frame is decoded yet")
		}
		e.currentShown = true
		return e.current.image, e.current.pts, nil
	})
}

func (e *Element) AudioOutput() types.PCMReader {
	return e.audio
}

func (e *Element) QualityStats() types.QualityStats {
	return xsync.DoR1(context.TODO(), &e.locker, func() types.QualityStats {
		return e.stats
	})
}

func (e *Element) Close(ctx context.Context) (_err error) {
	logger.Debugf(ctx, "Close")
	defer func() { logger.Debugf(ctx, "/Close: %v", _err) }()

	alreadyClosed := xsync.DoR1(ctx, &e.locker, func() bool {
		if e.closed {
			return true
		}
		e.closed = true
		e.paused = true
		if e.cancel != nil {
			e.cancel()
		}
		return false
	})
	if alreadyClosed {
		return nil
	}
	e.audio.Close()

	// unblock a decoder stuck on a full queue
	for drained := false; !drained; {
		select {
		case <-e.videoQueue:
		default:
			drained = true
		}
	}

	waitCh := make(chan struct{})
	observability.Go(ctx, func(ctx context.Context) {
		e.wg.Wait()
		close(waitCh)
	})
	select {
	case <-waitCh:
		return e.release(ctx)
	case <-ctx.Done():
		// the loops still use the libav contexts, so they are freed
		// once the loops have exited
		observability.Go(xcontext.DetachDone(ctx), func(ctx context.Context) {
			<-waitCh
			errmon.ObserveErrorCtx(ctx, e.release(ctx))
		})
		return ctx.Err()
	}
}

func (e *Element) release(ctx context.Context) error {
	return xsync.DoR1(ctx, &e.decodeLocker, func() error {
		e.images.Close()
		if e.decoder != nil {
			e.decoder.Close()
			e.decoder = nil
		}
		if e.input != nil {
			err := e.input.Close()
			e.input = nil
			if err != nil {
				return fmt.Errorf("unable to close the input: %w", err)
			}
		}
		return nil
	})
}
