package helpers

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// Writer emits HTML for hand-built components and keeps the first write error.
type Writer struct {
	w   io.Writer
	err error
}

// NewWriter wraps w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Raw writes trusted markup verbatim.
func (w *Writer) Raw(parts ...string) {
	for _, part := range parts {
		if w.err != nil {
			return
		}
		_, w.err = io.WriteString(w.w, part)
	}
}

// Text writes escaped text content.
func (w *Writer) Text(value string) {
	w.Raw(templ.EscapeString(value))
}

// Attr writes ` name="value"` with the value escaped.
func (w *Writer) Attr(name, value string) {
	w.Raw(" ", name, `="`, templ.EscapeString(value), `"`)
}

// BoolAttr writes a bare attribute when on is true.
func (w *Writer) BoolAttr(name string, on bool) {
	if on {
		w.Raw(" ", name)
	}
}

// Component renders a nested component into the same stream.
func (w *Writer) Component(ctx context.Context, c templ.Component) {
	if w.err != nil || c == nil {
		return
	}
	w.err = c.Render(ctx, w.w)
}

// Err returns the first error encountered.
func (w *Writer) Err() error {
	return w.err
}

// Component adapts a write function into a templ.Component.
func Component(fn func(ctx context.Context, w *Writer)) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := NewWriter(out)
		fn(ctx, w)
		return w.Err()
	})
}
