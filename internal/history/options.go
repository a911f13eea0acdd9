package history

// Logger is the subset of the application logger the manager writes to.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Warn(string, ...any)  {}

// Option configures a Manager during creation.
type Option func(*Manager)

// WithLogger routes manager diagnostics, including stub-hook calls, to l.
func WithLogger(l Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithStrictHooks makes operations fail with ErrNotConfigured instead of
// falling back to the logging stub hooks.
func WithStrictHooks() Option {
	return func(m *Manager) {
		m.strict = true
	}
}

// WithHooks registers the capture and restore hooks at construction time.
func WithHooks(capture CaptureFunc, restore RestoreFunc) Option {
	return func(m *Manager) {
		m.capture = capture
		m.restore = restore
	}
}
