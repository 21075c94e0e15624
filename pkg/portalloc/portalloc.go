// Package portalloc picks the TCP port the gateway listens on.
package portalloc

import (
	"net"
	"strconv"

	"github.com/core-tools/hsu-gateway/pkg/errors"
)

const (
	DefaultStartPort = 5050
	DefaultRange     = 100

	probeHost = "127.0.0.1"
)

// IsPortInUse attempts to bind 127.0.0.1:port. A failed bind means some
// other socket holds the port; a successful bind is released immediately.
func IsPortInUse(port int) bool {
	ln, err := net.Listen("tcp", net.JoinHostPort(probeHost, strconv.Itoa(port)))
	if err != nil {
		return true
	}
	ln.Close()
	return false
}

// Allocator scans [StartPort, StartPort+Range) in ascending order.
type Allocator struct {
	StartPort int
	Range     int
	// InUse overrides the bind probe, for tests.
	InUse func(port int) bool
}

// NewAllocator returns an allocator over the default range.
func NewAllocator() *Allocator {
	return &Allocator{StartPort: DefaultStartPort, Range: DefaultRange}
}

// Resolve returns explicit unchanged when it is non-zero; the caller owns
// that choice and no availability check is made. Otherwise the first free
// port in range is returned.
func (a *Allocator) Resolve(explicit int) (int, error) {
	if explicit != 0 {
		return explicit, nil
	}
	return a.FindAvailablePort()
}

// FindAvailablePort returns the lowest free port in range. The port is not
// reserved; another process may take it before the caller binds.
func (a *Allocator) FindAvailablePort() (int, error) {
	start, count := a.StartPort, a.Range
	if start <= 0 {
		start = DefaultStartPort
	}
	if count <= 0 {
		count = DefaultRange
	}
	inUse := a.InUse
	if inUse == nil {
		inUse = IsPortInUse
	}

	for port := start; port < start+count; port++ {
		if !inUse(port) {
			return port, nil
		}
	}
	return 0, errors.NewNoPortAvailableError(start, count)
}
