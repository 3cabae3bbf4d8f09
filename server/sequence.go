package server

import (
	"sync"

	"github.com/corymhall/jxalsp/lsp"
)

// runOrder tracks the lint runs of one document.
type runOrder struct {
	lastStarted int
	lastEnded   int
}

// RunSequence orders lint results per document. Runs may finish in any
// order; a result is kept only if no later-started run has already
// delivered one.
type RunSequence struct {
	mu   sync.Mutex
	runs map[lsp.DocumentURI]*runOrder
}

func NewRunSequence() *RunSequence {
	return &RunSequence{runs: make(map[lsp.DocumentURI]*runOrder)}
}

func (s *RunSequence) entryLocked(uri lsp.DocumentURI) *runOrder {
	r, ok := s.runs[uri]
	if !ok {
		r = &runOrder{lastStarted: 1}
		s.runs[uri] = r
	}
	return r
}

// Begin returns the index of a new run for uri.
func (s *RunSequence) Begin(uri lsp.DocumentURI) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.entryLocked(uri)
	index := r.lastStarted
	r.lastStarted++
	return index
}

// Accept reports whether the result of run index is still current, and if
// so marks it as the latest delivered result.
func (s *RunSequence) Accept(uri lsp.DocumentURI, index int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.entryLocked(uri)
	if r.lastEnded >= index {
		return false
	}
	r.lastEnded = index
	return true
}
