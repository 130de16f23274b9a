// Package binaries describes the closed set of serving binary flavors that
// the validator knows how to run. Each flavor knows how to translate a host
// port and a model location into a concrete container run configuration;
// supporting a new serving binary means adding a flavor here, not touching
// the runner's control flow.
package binaries

import (
	"github.com/docker/docker/api/types/container"

	"github.com/docker/model-validator/pkg/serving"
)

const (
	// labelRole marks containers created by the validator.
	labelRole = "com.docker.model-validator.role"
	// roleServing is the labelRole value for throwaway serving containers.
	roleServing = "serving"
)

// RunParams is the concrete run configuration handed to the container engine
// for a single serving container. The container is always run detached with
// auto-removal enabled so that a crashed server leaves no resources behind.
type RunParams struct {
	// Config is the container configuration: image, environment and exposed
	// ports.
	Config *container.Config
	// Host is the host-side configuration: port bindings, mounts, resource
	// limits and the auto-removal flag.
	Host *container.HostConfig
}

// Binary describes one flavor of serving binary.
type Binary interface {
	// Image returns the container image reference to run.
	Image() string
	// RunParams builds the run configuration for serving the model at loc
	// with the container's serving port bound to hostPort.
	RunParams(hostPort int, loc serving.Location) (*RunParams, error)
}
