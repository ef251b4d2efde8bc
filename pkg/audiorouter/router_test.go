package audiorouter

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/videotexture/pkg/videotexture/types"
)

type mockNode struct {
	name          string
	outputs       []*mockNode
	connectErr    error
	disconnectErr error
}

func (n *mockNode) Connect(dst types.AudioNode) error {
	if n.connectErr != nil {
		return n.connectErr
	}
	n.outputs = append(n.outputs, dst.(*mockNode))
	return nil
}

func (n *mockNode) Disconnect() error {
	n.outputs = nil
	return n.disconnectErr
}

type mockGraph struct {
	destination *mockNode
	tapsCreated int
	closed      bool
}

func (g *mockGraph) CreateMediaElementSource(context.Context, types.MediaElement) (types.AudioNode, error) {
	g.tapsCreated++
	return &mockNode{name: "tap"}, nil
}

func (g *mockGraph) Destination() types.AudioNode {
	return g.destination
}

func (g *mockGraph) Close(context.Context) error {
	g.closed = true
	return nil
}

type mockExtension struct {
	graph   *mockGraph
	sources map[types.SourceID]*types.AudioSourceDescriptor
}

func (e *mockExtension) Graph() types.AudioGraph {
	return e.graph
}

func (e *mockExtension) Source(id types.SourceID) (*types.AudioSourceDescriptor, bool) {
	d, ok := e.sources[id]
	return d, ok
}

func newMockExtension() *mockExtension {
	return &mockExtension{
		graph: &mockGraph{destination: &mockNode{name: "destination"}},
		sources: map[types.SourceID]*types.AudioSourceDescriptor{
			"speaker": {
				ID:     "speaker",
				Type:   types.AudioSourceTypeObject,
				Gain:   &mockNode{name: "gain0"},
				Panner: &mockNode{name: "panner"},
			},
			"sphere": {
				ID:         "sphere",
				Type:       types.AudioSourceTypeHigherOrderAmbisonics,
				Gain:       &mockNode{name: "gain1"},
				Ambisonics: &mockNode{name: "hoa"},
			},
			"broken": {
				ID:   "broken",
				Type: types.AudioSourceTypeHigherOrderAmbisonics,
				Gain: &mockNode{name: "gain2"},
			},
		},
	}
}

func chainNames(start *mockNode) []string {
	var names []string
	for n := start; n != nil; {
		names = append(names, n.name)
		if len(n.outputs) == 0 {
			break
		}
		n = n.outputs[0]
	}
	return names
}

func TestConnectObjectThenHOA(t *testing.T) {
	ctx := context.Background()
	ext := newMockExtension()
	r := New()

	b, err := r.Connect(ctx, ext, "speaker", nil)
	require.NoError(t, err)
	require.Equal(t, types.AudioSourceTypeObject, b.Type)
	tap := b.Nodes[0].(*mockNode)
	assert.Equal(t, []string{"tap", "gain0", "panner", "destination"}, chainNames(tap))

	b, err = r.Connect(ctx, ext, "sphere", nil)
	require.NoError(t, err)
	require.Equal(t, types.AudioSourceTypeHigherOrderAmbisonics, b.Type)
	require.Same(t, tap, b.Nodes[0], "the tap is expected to be reused")
	assert.Equal(t, []string{"tap", "gain1", "hoa", "destination"}, chainNames(tap))
	assert.Empty(t, ext.sources["speaker"].Gain.(*mockNode).outputs)
	assert.Equal(t, 1, ext.graph.tapsCreated)

	require.NoError(t, r.Close(ctx))
	require.True(t, ext.graph.closed)
	require.Nil(t, r.Binding())
	require.NoError(t, r.Close(ctx))
	_, err = r.Connect(ctx, ext, "speaker", nil)
	require.Error(t, err)
}

func TestConnectUnknownSource(t *testing.T) {
	ctx := context.Background()
	r := New()
	_, err := r.Connect(ctx, newMockExtension(), "nope", nil)
	var errNotFound types.ErrNotFound
	require.ErrorAs(t, err, &errNotFound)
	require.Equal(t, types.SourceID("nope"), errNotFound.SourceID)
	require.Nil(t, r.Binding())
}

func TestConnectMissingNode(t *testing.T) {
	ctx := context.Background()
	ext := newMockExtension()
	r := New()
	_, err := r.Connect(ctx, ext, "broken", nil)
	var errInvalid types.ErrInvalidAudioSource
	require.ErrorAs(t, err, &errInvalid)
	require.Zero(t, ext.graph.tapsCreated)
}

func TestConnectRollbackReportsDisconnectErrors(t *testing.T) {
	ctx := context.Background()
	ext := newMockExtension()
	errConnect := errors.New("the panner refused the destination")
	errDisconnect := errors.New("the gain node is gone")
	desc := ext.sources["speaker"]
	desc.Panner.(*mockNode).connectErr = errConnect
	desc.Gain.(*mockNode).disconnectErr = errDisconnect

	r := New()
	_, err := r.Connect(ctx, ext, "speaker", nil)
	require.ErrorIs(t, err, errConnect)
	require.ErrorIs(t, err, errDisconnect)
	require.Nil(t, r.Binding())
	assert.Empty(t, desc.Gain.(*mockNode).outputs)
}
