package inbox

import "time"

// Option configures a Service.
type Option func(*Service)

// WithClock sets the creation timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}
