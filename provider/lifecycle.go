package provider

import "context"

// Closeable is implemented by providers that hold resources, such as
// pooled connections or an open database, that must be released on shutdown.
type Closeable interface {
	Close(ctx context.Context) error
}

// CloseAll closes every Closeable in ps and returns the first error.
func CloseAll[T Provider](ctx context.Context, ps ...T) error {
	var first error
	for _, p := range ps {
		c, ok := any(p).(Closeable)
		if !ok {
			continue
		}
		if err := c.Close(ctx); err != nil && first == nil {
			first = err
		}
	}
	return first
}
