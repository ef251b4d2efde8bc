package libav

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/asticode/go-astiav"
	"github.com/asticode/go-astikit"
	"github.com/facebookincubator/go-belt/tool/experimental/errmon"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/videotexture/pkg/observability"
)

type input struct {
	*astikit.Closer
	*astiav.FormatContext
	*astiav.Dictionary
}

// openInput opens url and probes its streams. libav offers no cancellation
// here, so when ctx ends first the call returns right away and the input
// is released whenever the open attempt finishes.
func openInput(
	ctx context.Context,
	url string,
	customOptions []CustomOption,
) (*input, error) {
	type result struct {
		input *input
		err   error
	}
	resultCh := make(chan result, 1)
	observability.Go(ctx, func(ctx context.Context) {
		in, err := openInputBlocking(ctx, url, customOptions)
		resultCh <- result{input: in, err: err}
	})

	select {
	case r := <-resultCh:
		return r.input, r.err
	case <-ctx.Done():
		observability.Go(ctx, func(ctx context.Context) {
			r := <-resultCh
			if r.input != nil {
				logger.Debugf(ctx, "releasing an input opened after cancellation")
				errmon.ObserveErrorCtx(ctx, r.input.Close())
			}
		})
		return nil, ctx.Err()
	}
}

func openInputBlocking(
	ctx context.Context,
	url string,
	customOptions []CustomOption,
) (_ *input, _err error) {
	if url == "" {
		return nil, fmt.Errorf("the provided URL is empty")
	}

	in := &input{
		Closer: astikit.NewCloser(),
	}
	defer func() {
		if _err != nil {
			errmon.ObserveErrorCtx(ctx, in.Close())
		}
	}()

	in.FormatContext = astiav.AllocFormatContext()
	if in.FormatContext == nil {
		return nil, fmt.Errorf("unable to allocate a format context")
	}
	in.Closer.Add(in.FormatContext.Free)

	in.Dictionary = astiav.NewDictionary()
	in.Closer.Add(in.Dictionary.Free)
	if deadline, ok := ctx.Deadline(); ok {
		timeout := max(time.Until(deadline), time.Millisecond)
		in.Dictionary.Set("rw_timeout", strconv.FormatInt(timeout.Microseconds(), 10), 0)
	}
	for _, opt := range customOptions {
		if opt.Key == "f" {
			return nil, fmt.Errorf("overriding input format is not supported")
		}
		logger.Debugf(ctx, "input.Dictionary['%s'] = '%s'", opt.Key, opt.Value)
		in.Dictionary.Set(opt.Key, opt.Value, 0)
	}

	if err := in.FormatContext.OpenInput(url, nil, in.Dictionary); err != nil {
		return nil, fmt.Errorf("unable to open input by URL '%s': %w", url, err)
	}
	in.Closer.Add(in.FormatContext.CloseInput)

	if err := in.FormatContext.FindStreamInfo(nil); err != nil {
		return nil, fmt.Errorf("unable to get stream info: %w", err)
	}
	return in, nil
}

func (in *input) streamDuration() time.Duration {
	d := in.FormatContext.Duration()
	if d <= 0 {
		return 0
	}
	return toDuration(d, 1/float64(astiav.TimeBase))
}

func toDuration(ts int64, timeBase float64) time.Duration {
	seconds := float64(ts) * timeBase
	return time.Duration(float64(time.Second) * seconds)
}

func fromDuration(d time.Duration, timeBase float64) int64 {
	return int64(d.Seconds() / timeBase)
}
