package frameconv

import (
	"sync"
)

type scratch struct {
	Pix []byte
}

// scratchPool recycles the RGBA scratch buffers of Convert. Buffers keep
// their capacity across uses and are truncated on Put.
type scratchPool struct {
	pool sync.Pool
}

func newScratchPool() *scratchPool {
	return &scratchPool{
		pool: sync.Pool{
			New: func() any {
				return &scratch{}
			},
		},
	}
}

func (p *scratchPool) Get() *scratch {
	return p.pool.Get().(*scratch)
}

func (p *scratchPool) Put(s *scratch) {
	s.Pix = s.Pix[:0]
	p.pool.Put(s)
}
