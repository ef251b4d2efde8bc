// Package spatialaudio is a small pull-model audio graph: every node renders
// interleaved stereo float32 by pulling from its inputs, and the destination
// pumps the mix into a PCM output backend.
package spatialaudio

import (
	"fmt"

	"github.com/xaionaro-go/videotexture/pkg/videotexture/types"
)

const Channels = 2

type Node interface {
	types.AudioNode

	graph() *Graph
	base() *nodeBase
	render(out []float32)
}

type nodeBase struct {
	g       *Graph
	self    Node
	inputs  []Node
	outputs []Node
	scratch []float32
}

func (n *nodeBase) graph() *Graph {
	return n.g
}

func (n *nodeBase) base() *nodeBase {
	return n
}

// Connect routes the output of this node into dst. Both nodes must belong
// to the same graph.
func (n *nodeBase) Connect(dst types.AudioNode) error {
	dstNode, ok := dst.(Node)
	if !ok {
		return fmt.Errorf("node %T does not belong to a spatial audio graph", dst)
	}
	if dstNode.graph() != n.g {
		return fmt.Errorf("cannot connect nodes of different graphs")
	}
	n.g.locker.Do(n.g.ctx(), func() {
		dstBase := dstNode.base()
		for _, in := range dstBase.inputs {
			if in == n.self {
				return
			}
		}
		dstBase.inputs = append(dstBase.inputs, n.self)
		n.outputs = append(n.outputs, dstNode)
	})
	return nil
}

// Disconnect removes all outgoing connections of this node.
func (n *nodeBase) Disconnect() error {
	n.g.locker.Do(n.g.ctx(), func() {
		for _, out := range n.outputs {
			outBase := out.base()
			filtered := outBase.inputs[:0]
			for _, in := range outBase.inputs {
				if in != n.self {
					filtered = append(filtered, in)
				}
			}
			outBase.inputs = filtered
		}
		n.outputs = nil
	})
	return nil
}

// mixInputs renders the sum of all inputs into out.
func (n *nodeBase) mixInputs(out []float32) {
	clear(out)
	if len(n.inputs) == 0 {
		return
	}
	if cap(n.scratch) < len(out) {
		n.scratch = make([]float32, len(out))
	}
	scratch := n.scratch[:len(out)]
	for _, in := range n.inputs {
		in.render(scratch)
		for i, v := range scratch {
			out[i] += v
		}
	}
}
