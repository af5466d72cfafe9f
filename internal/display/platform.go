package display

// Watcher delivers display-change events (added, removed, metrics changed).
// onChange may be called from any goroutine.
type Watcher interface {
	// Watch starts delivering events and returns a function that stops them
	Watch(onChange func()) (stop func(), err error)
}

// Platform is the host display API consumed by the Registry
type Platform interface {
	Watcher

	// Name returns the backend name (e.g., "x11", "screenshot")
	Name() string

	// Displays enumerates the connected displays. IsPrimary is not
	// required to be set; the Registry marks the primary itself.
	Displays() ([]Info, error)

	// Primary returns the platform's primary display
	Primary() (Info, error)

	// Nearest returns the display nearest to a point. A nil result with a
	// nil error means the platform had no answer.
	Nearest(x, y int) (*Info, error)

	// Close releases the platform connection
	Close() error
}
