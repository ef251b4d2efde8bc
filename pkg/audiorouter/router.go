// Package audiorouter binds the audio output of a media element into a
// spatial audio graph.
package audiorouter

import (
	"context"
	"fmt"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/hashicorp/go-multierror"
	"github.com/xaionaro-go/videotexture/pkg/videotexture/types"
	"github.com/xaionaro-go/xsync"
)

type Router struct {
	locker  xsync.Mutex
	graph   types.AudioGraph
	tap     types.AudioNode
	binding *types.AudioBinding
	closed  bool
}

func New() *Router {
	return &Router{}
}

// Connect routes the element audio into the graph of ext according to the
// descriptor of sourceID. The media element tap is created once per graph
// and reused on rebind.
func (r *Router) Connect(
	ctx context.Context,
	ext types.AudioExtension,
	sourceID types.SourceID,
	el types.MediaElement,
) (_ret *types.AudioBinding, _err error) {
	logger.Debugf(ctx, "Connect(ctx, ext, '%s')", sourceID)
	defer func() { logger.Debugf(ctx, "/Connect(ctx, ext, '%s'): %v", sourceID, _err) }()

	return xsync.DoR2(ctx, &r.locker, func() (*types.AudioBinding, error) {
		return r.connectLocked(ctx, ext, sourceID, el)
	})
}

func (r *Router) connectLocked(
	ctx context.Context,
	ext types.AudioExtension,
	sourceID types.SourceID,
	el types.MediaElement,
) (*types.AudioBinding, error) {
	if r.closed {
		return nil, fmt.Errorf("the audio router is closed")
	}
	if ext == nil {
		return nil, fmt.Errorf("audio extension is not set")
	}
	desc, ok := ext.Source(sourceID)
	if !ok || desc == nil {
		return nil, types.ErrNotFound{Kind: "audio source", SourceID: sourceID}
	}
	spatial, err := spatialNode(sourceID, desc)
	if err != nil {
		return nil, err
	}
	graph := ext.Graph()
	if graph == nil {
		return nil, types.ErrInvalidAudioSource{SourceID: sourceID, Reason: "no audio graph"}
	}

	if err := r.disconnectLocked(); err != nil {
		return nil, fmt.Errorf("unable to disconnect the previous binding: %w", err)
	}

	if r.tap == nil || r.graph != graph {
		tap, err := graph.CreateMediaElementSource(ctx, el)
		if err != nil {
			return nil, fmt.Errorf("unable to create a media element audio source: %w", err)
		}
		r.tap, r.graph = tap, graph
	}

	chain := []types.AudioNode{r.tap, desc.Gain, spatial, graph.Destination()}
	for i := 0; i+1 < len(chain); i++ {
		if err := chain[i].Connect(chain[i+1]); err != nil {
			mErr := multierror.Append(nil, fmt.Errorf("unable to connect node #%d to node #%d: %w", i, i+1, err))
			for j, n := range chain[:i] {
				if err := n.Disconnect(); err != nil {
					mErr = multierror.Append(mErr, fmt.Errorf("unable to disconnect node #%d: %w", j, err))
				}
			}
			return nil, mErr.ErrorOrNil()
		}
	}

	r.binding = &types.AudioBinding{
		SourceID: sourceID,
		Type:     desc.Type,
		Nodes:    chain[:len(chain)-1],
	}
	logger.Debugf(ctx, "routed the audio into '%s' as %s", sourceID, desc.Type)
	return r.binding, nil
}

func spatialNode(
	sourceID types.SourceID,
	desc *types.AudioSourceDescriptor,
) (types.AudioNode, error) {
	if desc.Gain == nil {
		return nil, types.ErrInvalidAudioSource{SourceID: sourceID, Reason: "no gain node"}
	}
	switch desc.Type {
	case types.AudioSourceTypeObject:
		if desc.Panner == nil {
			return nil, types.ErrInvalidAudioSource{SourceID: sourceID, Reason: "object source without a panner"}
		}
		return desc.Panner, nil
	case types.AudioSourceTypeHigherOrderAmbisonics:
		if desc.Ambisonics == nil {
			return nil, types.ErrInvalidAudioSource{SourceID: sourceID, Reason: "HOA source without an ambisonics renderer"}
		}
		return desc.Ambisonics, nil
	default:
		return nil, types.ErrInvalidAudioSource{SourceID: sourceID, Reason: fmt.Sprintf("unsupported type %s", desc.Type)}
	}
}

func (r *Router) disconnectLocked() error {
	if r.binding == nil {
		return nil
	}
	var mErr *multierror.Error
	for _, n := range r.binding.Nodes {
		if err := n.Disconnect(); err != nil {
			mErr = multierror.Append(mErr, err)
		}
	}
	r.binding = nil
	return mErr.ErrorOrNil()
}

func (r *Router) Binding() *types.AudioBinding {
	return xsync.DoR1(context.TODO(), &r.locker, func() *types.AudioBinding {
		return r.binding
	})
}

// Close disconnects the chain and closes the graph. It is idempotent.
func (r *Router) Close(ctx context.Context) error {
	logger.Debugf(ctx, "Close")
	defer logger.Debugf(ctx, "/Close")
	return xsync.DoR1(ctx, &r.locker, func() error {
		if r.closed {
			return nil
		}
		r.closed = true

		var mErr *multierror.Error
		if err := r.disconnectLocked(); err != nil {
			mErr = multierror.Append(mErr, err)
		}
		if r.tap != nil {
			if err := r.tap.Disconnect(); err != nil {
				mErr = multierror.Append(mErr, err)
			}
		}
		if r.graph != nil {
			if err := r.graph.Close(ctx); err != nil {
				mErr = multierror.Append(mErr, fmt.Errorf("unable to close the audio graph: %w", err))
			}
		}
		r.tap, r.graph = nil, nil
		return mErr.ErrorOrNil()
	})
}
