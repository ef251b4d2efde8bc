package commands

import (
	"net/url"

	"github.com/xaionaro-go/videotexture/pkg/config"
	"github.com/xaionaro-go/videotexture/pkg/mediaelement/libav"
	"github.com/xaionaro-go/videotexture/pkg/mediaelement/testsrc"
	"github.com/xaionaro-go/videotexture/pkg/videotexture/types"
)

// mediaElementFactory picks the synthetic source for testsrc:// URLs and
// libav for everything else.
func mediaElementFactory(
	manifestURL string,
	decoderOptions []config.DecoderOption,
) types.MediaElementFactory {
	if u, err := url.Parse(manifestURL); err == nil && u.Scheme == testsrc.Scheme {
		return testsrc.Factory()
	}

	customOpts := make([]libav.CustomOption, 0, len(decoderOptions))
	for _, opt := range decoderOptions {
		customOpts = append(customOpts, libav.CustomOption{
			Key:   opt.Key,
			Value: opt.Value,
		})
	}
	return libav.Factory(libav.OptionCustomOptions(customOpts))
}
