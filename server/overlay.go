package server

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/corymhall/jxalsp/file"
	"github.com/corymhall/jxalsp/lsp"
	"github.com/corymhall/jxalsp/provider"
)

// An overlay is an open document whose contents are owned by the editor.
type overlay struct {
	uri     lsp.DocumentURI
	version int32
	content []byte
	kind    file.Kind
}

func (o *overlay) URI() lsp.DocumentURI { return o.uri }
func (o *overlay) Version() int32       { return o.version }
func (o *overlay) Content() []byte      { return o.content }
func (o *overlay) Kind() file.Kind      { return o.kind }

// Overlays holds the documents currently open in the editor.
type Overlays struct {
	mu    sync.Mutex
	files map[lsp.DocumentURI]*overlay
}

func NewOverlays() *Overlays {
	return &Overlays{files: make(map[lsp.DocumentURI]*overlay)}
}

// Apply records mod. It returns the document after the change, or its last
// state for a close.
func (o *Overlays) Apply(mod file.Modification) (file.Handle, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	existing, open := o.files[mod.URI]
	switch mod.Action {
	case file.Open:
		fh := &overlay{
			uri:     mod.URI,
			version: mod.Version,
			content: mod.Text,
			kind:    file.KindFor(mod.LanguageID, mod.URI),
		}
		o.files[mod.URI] = fh
		return fh, nil
	case file.Change, file.Save:
		if !open {
			return nil, fmt.Errorf("%s: %v of a document that is not open", mod.URI, mod.Action)
		}
		fh := *existing
		if mod.Text != nil {
			fh.content = mod.Text
		}
		if mod.Action == file.Change {
			fh.version = mod.Version
		}
		o.files[mod.URI] = &fh
		return &fh, nil
	case file.Close:
		if !open {
			return nil, fmt.Errorf("%s: close of a document that is not open", mod.URI)
		}
		delete(o.files, mod.URI)
		return existing, nil
	}
	return nil, fmt.Errorf("%s: unsupported action %v", mod.URI, mod.Action)
}

func (o *Overlays) Get(uri lsp.DocumentURI) (file.Handle, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	fh, ok := o.files[uri]
	if !ok {
		return nil, false
	}
	return fh, true
}

func (o *Overlays) IsOpen(uri lsp.DocumentURI) bool {
	_, ok := o.Get(uri)
	return ok
}

// Handles returns the open documents sorted by URI.
func (o *Overlays) Handles() []file.Handle {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]file.Handle, 0, len(o.files))
	for _, fh := range o.files {
		out = append(out, fh)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].URI() < out[j].URI() })
	return out
}

// document converts fh into what providers lint.
func document(fh file.Handle) provider.Document {
	return provider.Document{
		URI:  fh.URI(),
		Path: fh.URI().Path(),
		Text: string(fh.Content()),
	}
}

// A diskFile is a document read from the filesystem because the editor does
// not have it open.
type diskFile struct {
	uri     lsp.DocumentURI
	content []byte
}

func (h *diskFile) URI() lsp.DocumentURI { return h.uri }
func (h *diskFile) Version() int32       { return 0 }
func (h *diskFile) Content() []byte      { return h.content }
func (h *diskFile) Kind() file.Kind      { return file.KindForPath(h.uri.Path()) }

// ioLimit limits the number of parallel file reads per process.
var ioLimit = make(chan struct{}, 128)

// ReadFile returns the open document for uri, or reads it from disk.
func (o *Overlays) ReadFile(ctx context.Context, uri lsp.DocumentURI) (file.Handle, error) {
	if fh, ok := o.Get(uri); ok {
		return fh, nil
	}
	path := uri.Path()
	if path == "" {
		return nil, fmt.Errorf("%s is neither open nor a file", uri)
	}

	select {
	case ioLimit <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-ioLimit }()

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", uri, err)
	}
	return &diskFile{uri: uri, content: content}, nil
}
