package observability

import (
	"context"
	"sync"
)

type requestFieldsKey struct{}

// RequestFields collects attributes set by inner handlers so the outermost
// request logger can report them after the response is written.
type RequestFields struct {
	mu    sync.Mutex
	attrs []any
}

// WithRequestFields attaches an empty field set to ctx.
func WithRequestFields(ctx context.Context) (context.Context, *RequestFields) {
	f := &RequestFields{}
	return context.WithValue(ctx, requestFieldsKey{}, f), f
}

// AnnotateRequest records key=value on the request's field set. It is a no-op
// when no request logger is installed.
func AnnotateRequest(ctx context.Context, key string, value any) {
	f, ok := ctx.Value(requestFieldsKey{}).(*RequestFields)
	if !ok || f == nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := 0; i+1 < len(f.attrs); i += 2 {
		if f.attrs[i] == key {
			f.attrs[i+1] = value
			return
		}
	}
	f.attrs = append(f.attrs, key, value)
}

// Attrs returns a copy of the recorded key/value pairs in insertion order.
func (f *RequestFields) Attrs() []any {
	if f == nil {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]any, len(f.attrs))
	copy(out, f.attrs)
	return out
}
