package validator

import (
	"errors"
)

var (
	// ErrModelNameMismatch indicates that the model name declared in the
	// serving configuration does not match the name encoded in the servable
	// path. It is raised at runner construction, never later; the
	// configuration must be fixed.
	ErrModelNameMismatch = errors.New("configured model name does not match the servable path")

	// ErrUnsupportedBinary indicates that the runner has no support for the
	// requested serving binary flavor. It is fatal and non-retriable: it
	// signals a missing feature, not a transient fault.
	ErrUnsupportedBinary = errors.New("unsupported serving binary")

	// ErrJobAborted indicates that the serving container died, was removed,
	// or entered a non-recoverable status before reaching a running state.
	// The runner never retries an aborted job; retry policy belongs to the
	// caller.
	ErrJobAborted = errors.New("serving job aborted")

	// ErrDeadlineExceeded indicates that the serving container did not reach
	// a running state before the deadline. It is distinct from ErrJobAborted
	// so that callers can tell "too slow" from "actually broke".
	ErrDeadlineExceeded = errors.New("deadline exceeded waiting for the model server")

	// ErrContainerNotFound is returned by a ContainerEngine status refresh
	// when the container no longer exists, for example after auto-removal of
	// a crashed container.
	ErrContainerNotFound = errors.New("container not found")
)
