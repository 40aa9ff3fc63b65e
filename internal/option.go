package internal

// Option customises the runtime assembled by Run and RunSync.
type Option func(*application)

type application struct {
	config *Config
}

// WithConfig supplies the loaded configuration. Both entrypoints require it.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}
