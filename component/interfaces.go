package component

import (
	"context"

	"github.com/kbukum/voicegate/observability"
)

// Component represents a lifecycle-managed infrastructure component such as
// the voice store database or the HTTP server.
type Component interface {
	// Name returns the unique name of the component for registration.
	Name() string

	// Start initializes and starts the component.
	Start(ctx context.Context) error

	// Stop gracefully shuts down the component and releases resources.
	Stop(ctx context.Context) error

	observability.HealthChecker
}

// Description holds summary information for the startup log.
type Description struct {
	// Name is the human-readable display name, e.g. "HTTP Server". If empty,
	// the component's Name() is used.
	Name string
	// Type categorizes the component: "database", "server" and so on.
	Type string
	// Details is a one-liner such as "data/voicegate.db pool=1".
	Details string
	// Port is the primary port, 0 if not applicable.
	Port int
}

// Describable is optionally implemented by components to self-report how
// they are configured.
type Describable interface {
	Describe() Description
}

// Route holds a single HTTP route for the startup log.
type Route struct {
	Method  string
	Path    string
	Handler string
}

// RouteProvider is optionally implemented by server components.
type RouteProvider interface {
	Routes() []Route
}
