// Package host defines the addressable endpoint value the rest of the
// module selects, dials, and tracks health for.
package host

import "fmt"

// Host is an immutable scheme/host/port triple. Its identity for
// pool membership and map-keying purposes is the triple itself, so
// Host is deliberately a comparable value type rather than a pointer.
type Host struct {
	Scheme string
	Name   string
	Port   int
}

// New builds a Host, defaulting Scheme to "http" when empty.
func New(scheme, name string, port int) Host {
	if scheme == "" {
		scheme = "http"
	}
	return Host{Scheme: scheme, Name: name, Port: port}
}

// String renders the host as scheme://name:port, the form used by the
// trace formatter and debug log lines.
func (h Host) String() string {
	return fmt.Sprintf("%s://%s:%d", h.Scheme, h.Name, h.Port)
}
