package feed

// Option configures a Broker.
type Option func(*Broker)

// WithBuffer sets the per-subscriber buffer size.
func WithBuffer(n int) Option {
	return func(b *Broker) {
		if n > 0 {
			b.buffer = n
		}
	}
}

// WithOrigin fixes the instance id instead of generating one.
func WithOrigin(origin string) Option {
	return func(b *Broker) {
		if origin != "" {
			b.origin = origin
		}
	}
}
