package videotexture

import (
	"context"
	"image"
	"sync"
	"time"

	"github.com/xaionaro-go/videotexture/pkg/ringbuffer"
	"github.com/xaionaro-go/videotexture/pkg/videotexture/types"
)

type fakeElement struct {
	lock       sync.Mutex
	readyState types.ReadyState
	frameRate  float64
	width      int
	height     int
	paused     bool
	ended      bool
	endCh      chan struct{}
	position   time.Duration
	playErr    error
	openBlocks bool
	openCount  int
	closed     bool
}

var _ types.MediaElement = (*fakeElement)(nil)

func newFakeElement() *fakeElement {
	return &fakeElement{
		readyState: types.ReadyStateHaveEnoughData,
		frameRate:  30,
		width:      160,
		height:     90,
		paused:     true,
		endCh:      make(chan struct{}),
	}
}

func (e *fakeElement) Open(ctx context.Context, url string) error {
	e.lock.Lock()
	e.openCount++
	blocks := e.openBlocks
	e.lock.Unlock()
	if blocks {
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

func (e *fakeElement) ReadyState() types.ReadyState {
	e.lock.Lock()
	defer e.lock.Unlock()
	return e.readyState
}

func (e *fakeElement) FrameRate() float64 {
	e.lock.Lock()
	defer e.lock.Unlock()
	return e.frameRate
}

func (e *fakeElement) VideoSize() (int, int) {
	e.lock.Lock()
	defer e.lock.Unlock()
	return e.width, e.height
}

func (e *fakeElement) Paused() bool {
	e.lock.Lock()
	defer e.lock.Unlock()
	return e.paused
}

func (e *fakeElement) Ended() bool {
	e.lock.Lock()
	defer e.lock.Unlock()
	return e.ended
}

func (e *fakeElement) EndChan() <-chan struct{} {
	e.lock.Lock()
	defer e.lock.Unlock()
	return e.endCh
}

func (e *fakeElement) Play(ctx context.Context) error {
	e.lock.Lock()
	defer e.lock.Unlock()
	if e.playErr != nil {
		return e.playErr
	}
	e.paused = false
	return nil
}

func (e *fakeElement) Pause(ctx context.Context) error {
	e.lock.Lock()
	defer e.lock.Unlock()
	e.paused = true
	return nil
}

func (e *fakeElement) Seek(ctx context.Context, pos time.Duration) error {
	e.lock.Lock()
	defer e.lock.Unlock()
	e.position = pos
	if e.ended {
		e.ended = false
		e.endCh = make(chan struct{})
	}
	return nil
}

func (e *fakeElement) CurrentTime() time.Duration {
	e.lock.Lock()
	defer e.lock.Unlock()
	return e.position
}

func (e *fakeElement) CurrentFrame(ctx context.Context) (image.Image, time.Duration, error) {
	e.lock.Lock()
	defer e.lock.Unlock()
	img := image.NewRGBA(image.Rect(0, 0, e.width, e.height))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = 255, 255, 255, 255
	}
	return img, e.position, nil
}

func (e *fakeElement) AudioOutput() types.PCMReader {
	return nil
}

func (e *fakeElement) QualityStats() types.QualityStats {
	return types.QualityStats{}
}

func (e *fakeElement) Close(ctx context.Context) error {
	e.lock.Lock()
	defer e.lock.Unlock()
	e.closed = true
	return nil
}

func (e *fakeElement) set(fn func(e *fakeElement)) {
	e.lock.Lock()
	defer e.lock.Unlock()
	fn(e)
}

// end simulates the end of the stream.
func (e *fakeElement) end() {
	e.lock.Lock()
	defer e.lock.Unlock()
	e.ended = true
	close(e.endCh)
}

type fakeFactory struct {
	lock    sync.Mutex
	element *fakeElement
	created int
}

func (f *fakeFactory) NewMediaElement(ctx context.Context) (types.MediaElement, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.created++
	return f.element, nil
}

type fakeTextureExtension struct {
	textures map[types.SourceID]*types.Texture
	sources  map[types.SourceID]*types.TextureSource
}

func newFakeTextureExtension() *fakeTextureExtension {
	return &fakeTextureExtension{
		textures: map[types.SourceID]*types.Texture{},
		sources:  map[types.SourceID]*types.TextureSource{},
	}
}

func (e *fakeTextureExtension) add(id types.SourceID, w, h int, maxFrames int) *types.TextureSource {
	target := types.NewTargetSpec(w, h, types.PixelFormatRGBA)
	e.textures[id] = &types.Texture{Width: w, Height: h, Format: types.PixelFormatRGBA}
	src := &types.TextureSource{
		RingBuffer: ringbuffer.New(uint((maxFrames + 1) * target.FrameByteSize)),
		MaxFrames:  maxFrames,
	}
	e.sources[id] = src
	return src
}

func (e *fakeTextureExtension) Texture(id types.SourceID) (*types.Texture, bool) {
	t, ok := e.textures[id]
	return t, ok
}

func (e *fakeTextureExtension) Source(id types.SourceID) (*types.TextureSource, bool) {
	s, ok := e.sources[id]
	return s, ok
}

// frameRecorder is a video frame listener keeping what it received.
type frameRecorder struct {
	lock   sync.Mutex
	frames []types.VideoFrame
}

func (r *frameRecorder) listener(ctx context.Context, frame types.VideoFrame) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.frames = append(r.frames, frame)
}

func (r *frameRecorder) count() int {
	r.lock.Lock()
	defer r.lock.Unlock()
	return len(r.frames)
}

func (r *frameRecorder) last() types.VideoFrame {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.frames[len(r.frames)-1]
}
