package issue

import (
	"slices"
	"sort"
	"sync"

	"github.com/corymhall/jxalsp/lsp"
	"github.com/pulumi/pulumi/sdk/v3/go/common/util/contract"
)

// Collection maps documents to their current issues. It is the only issue
// state the server publishes from.
type Collection struct {
	mu   sync.Mutex // guards sets
	sets map[lsp.DocumentURI]IssueSet
}

func NewCollection() *Collection {
	return &Collection{sets: make(map[lsp.DocumentURI]IssueSet)}
}

// Get returns a copy of the issues held for uri.
func (c *Collection) Get(uri lsp.DocumentURI) (IssueSet, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	set, ok := c.sets[uri]
	return slices.Clone(set), ok
}

func (c *Collection) Has(uri lsp.DocumentURI) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.sets[uri]
	return ok
}

func (c *Collection) Set(uri lsp.DocumentURI, set IssueSet) {
	contract.Assertf(uri != "", "issue collection keys must not be empty")
	c.mu.Lock()
	defer c.mu.Unlock()
	if set == nil {
		set = IssueSet{}
	}
	c.sets[uri] = slices.Clone(set)
}

// SetIfChanged stores set for uri unless it equals what is already held. It
// reports whether the collection was modified.
func (c *Collection) SetIfChanged(uri lsp.DocumentURI, set IssueSet) bool {
	contract.Assertf(uri != "", "issue collection keys must not be empty")
	c.mu.Lock()
	defer c.mu.Unlock()
	known, ok := c.sets[uri]
	if ok && !Changed(known, set) {
		return false
	}
	if set == nil {
		set = IssueSet{}
	}
	c.sets[uri] = slices.Clone(set)
	return true
}

// Remove drops the entry for uri and reports whether there was one.
func (c *Collection) Remove(uri lsp.DocumentURI) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.sets[uri]
	delete(c.sets, uri)
	return ok
}

// Clear empties the collection and returns the URIs that had entries.
func (c *Collection) Clear() []lsp.DocumentURI {
	c.mu.Lock()
	defer c.mu.Unlock()
	uris := c.urisLocked()
	clear(c.sets)
	return uris
}

func (c *Collection) URIs() []lsp.DocumentURI {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.urisLocked()
}

func (c *Collection) urisLocked() []lsp.DocumentURI {
	uris := make([]lsp.DocumentURI, 0, len(c.sets))
	for uri := range c.sets {
		uris = append(uris, uri)
	}
	sort.Slice(uris, func(i, j int) bool { return uris[i] < uris[j] })
	return uris
}

// Rename carries the issues of oldURI over to newURI. The old entry is kept
// only while oldStillOpen is true. It reports false when oldURI had no
// entry.
func (c *Collection) Rename(oldURI, newURI lsp.DocumentURI, oldStillOpen bool) bool {
	if oldURI == newURI {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	set, ok := c.sets[oldURI]
	if !ok {
		return false
	}
	c.sets[newURI] = slices.Clone(set)
	if !oldStillOpen {
		delete(c.sets, oldURI)
	}
	return true
}
