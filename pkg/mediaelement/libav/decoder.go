package libav

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/asticode/go-astiav"
	"github.com/facebookincubator/go-belt/tool/logger"
)

type streamDecoder struct {
	codec        *astiav.Codec
	codecContext *astiav.CodecContext
	stream       *astiav.Stream
}

func (d *streamDecoder) Close() {
	if d.codecContext != nil {
		d.codecContext.Free()
		d.codecContext = nil
	}
}

func newStreamDecoder(
	in *input,
	stream *astiav.Stream,
) (_ret *streamDecoder, _err error) {
	d := &streamDecoder{
		stream: stream,
	}
	defer func() {
		if _err != nil {
			d.Close()
		}
	}()

	d.codec = astiav.FindDecoder(stream.CodecParameters().CodecID())
	if d.codec == nil {
		return nil, fmt.Errorf("unable to find a codec using codec ID %v", stream.CodecParameters().CodecID())
	}

	d.codecContext = astiav.AllocCodecContext(d.codec)
	if d.codecContext == nil {
		return nil, fmt.Errorf("unable to allocate codec context")
	}

	if err := stream.CodecParameters().ToCodecContext(d.codecContext); err != nil {
		return nil, fmt.Errorf("CodecParameters().ToCodecContext(...) returned error: %w", err)
	}

	if stream.CodecParameters().MediaType() == astiav.MediaTypeVideo {
		d.codecContext.SetFramerate(in.FormatContext.GuessFrameRate(stream, nil))
	}

	if err := d.codecContext.Open(d.codec, nil); err != nil {
		return nil, fmt.Errorf("unable to open codec context: %w", err)
	}
	return d, nil
}

// decoder decodes the first video and the first audio stream of an input;
// every other stream is skipped.
type decoder struct {
	video  *streamDecoder
	audio  *streamDecoder
	packet *astiav.Packet
	frame  *astiav.Frame
}

type decodedHandler struct {
	onVideo func(d *streamDecoder, frame *astiav.Frame) error
	onAudio func(d *streamDecoder, frame *astiav.Frame) error
}

func newDecoder(ctx context.Context, in *input) (_ *decoder, _err error) {
	d := &decoder{
		packet: astiav.AllocPacket(),
		frame:  astiav.AllocFrame(),
	}
	defer func() {
		if _err != nil {
			d.Close()
		}
	}()

	for _, stream := range in.FormatContext.Streams() {
		switch stream.CodecParameters().MediaType() {
		case astiav.MediaTypeVideo:
			if d.video != nil {
				logger.Debugf(ctx, "skipping the extra video stream #%d", stream.Index())
				continue
			}
			sd, err := newStreamDecoder(in, stream)
			if err != nil {
				return nil, fmt.Errorf("unable to initialize a decoder for video stream #%d: %w", stream.Index(), err)
			}
			d.video = sd
		case astiav.MediaTypeAudio:
			if d.audio != nil {
				logger.Debugf(ctx, "skipping the extra audio stream #%d", stream.Index())
				continue
			}
			sd, err := newStreamDecoder(in, stream)
			if err != nil {
				logger.Warnf(ctx, "unable to initialize a decoder for audio stream #%d, continuing without audio: %v", stream.Index(), err)
				continue
			}
			d.audio = sd
		default:
			logger.Debugf(ctx, "stream %d is not an audio/video stream, skipping", stream.Index())
		}
	}
	if d.video == nil && d.audio == nil {
		return nil, fmt.Errorf("no decodable audio or video stream found")
	}
	return d, nil
}

func (d *decoder) Close() {
	if d.video != nil {
		d.video.Close()
	}
	if d.audio != nil {
		d.audio.Close()
	}
	d.frame.Free()
	d.packet.Free()
}

func (d *decoder) streamDecoderFor(streamIndex int) *streamDecoder {
	switch {
	case d.video != nil && d.video.stream.Index() == streamIndex:
		return d.video
	case d.audio != nil && d.audio.stream.Index() == streamIndex:
		return d.audio
	}
	return nil
}

// decodeNext reads one packet and hands every frame it yields to h.
// It returns io.EOF at the end of the input.
func (d *decoder) decodeNext(
	ctx context.Context,
	in *input,
	h decodedHandler,
) error {
	if err := in.FormatContext.ReadFrame(d.packet); err != nil {
		if errors.Is(err, astiav.ErrEof) {
			return io.EOF
		}
		return fmt.Errorf("unable to read a frame: %w", err)
	}
	defer d.packet.Unref()

	sd := d.streamDecoderFor(d.packet.StreamIndex())
	if sd == nil {
		return nil
	}

	if err := sd.codecContext.SendPacket(d.packet); err != nil {
		return fmt.Errorf("unable to send packet to the decoder: %w", err)
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := sd.codecContext.ReceiveFrame(d.frame)
		switch {
		case err == nil:
		case errors.Is(err, astiav.ErrEof):
			return io.EOF
		case errors.Is(err, astiav.ErrEagain):
			return nil
		default:
			return fmt.Errorf("unable to receive a frame: %w", err)
		}

		switch sd {
		case d.video:
			err = h.onVideo(sd, d.frame)
		case d.audio:
			err = h.onAudio(sd, d.frame)
		}
		d.frame.Unref()
		if err != nil {
			return err
		}
	}
}

func (sd *streamDecoder) framePosition(frame *astiav.Frame) time.Duration {
	return toDuration(frame.Pts(), sd.stream.TimeBase().Float64())
}
