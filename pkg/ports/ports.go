// Package ports provides best-effort allocation of free host ports for
// serving containers.
package ports

import (
	"fmt"
	"net"
)

// AllocatePort binds a transient TCP listener on the loopback interface with
// an OS-assigned port, reads the port back, and releases the listener. The
// port is not held open afterwards: another process may claim it before the
// container engine binds it, so the result is a best-effort reservation, not
// a lease.
func AllocatePort() (int, error) {
	listener, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		return 0, fmt.Errorf("unable to allocate a host port: %w", err)
	}
	defer listener.Close()
	addr, ok := listener.Addr().(*net.TCPAddr)
	if !ok {
		return 0, fmt.Errorf("unexpected listener address type %T", listener.Addr())
	}
	return addr.Port, nil
}
