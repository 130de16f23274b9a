package validator

import (
	"context"
	"fmt"
	"io"
	"time"

	cerrdefs "github.com/containerd/errdefs"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"

	"github.com/docker/model-validator/pkg/binaries"
	"github.com/docker/model-validator/pkg/logging"
)

// stopGracePeriodSeconds is how long the engine waits for a serving container
// to exit after SIGTERM before it is killed.
const stopGracePeriodSeconds = 10

// Status is a container status as reported by the container engine.
type Status string

// Container statuses reported by the Docker engine.
const (
	StatusCreated    Status = "created"
	StatusRestarting Status = "restarting"
	StatusRunning    Status = "running"
	StatusRemoving   Status = "removing"
	StatusPaused     Status = "paused"
	StatusExited     Status = "exited"
	StatusDead       Status = "dead"
)

// ContainerEngine is the minimum contract the runner requires from a
// container engine. It is injected so that the runner's state machine can be
// exercised with a scripted engine instead of a live container runtime.
type ContainerEngine interface {
	// RunContainer creates and starts a detached container and returns its
	// ID. Implementations must not leave a half-created container behind
	// when the start fails.
	RunContainer(ctx context.Context, params *binaries.RunParams) (string, error)
	// ContainerStatus refreshes and returns the container's status from the
	// engine. It returns an error wrapping ErrContainerNotFound if the
	// container no longer exists.
	ContainerStatus(ctx context.Context, containerID string) (Status, error)
	// ContainerLogs copies the container's combined output into w until the
	// container stops or ctx is cancelled.
	ContainerLogs(ctx context.Context, containerID string, w io.Writer) error
	// StopContainer stops the container. Best effort.
	StopContainer(ctx context.Context, containerID string) error
	// Close releases the engine client connection.
	Close() error
}

// ClientConfig carries the optional Docker client settings from the serving
// configuration. Zero values fall back to environment-based configuration
// (DOCKER_HOST and friends) with API version negotiation.
type ClientConfig struct {
	// Host overrides the Docker daemon address.
	Host string
	// APIVersion pins the Docker API version instead of negotiating it.
	APIVersion string
	// TimeoutSeconds bounds individual Docker API requests.
	TimeoutSeconds int
}

type dockerEngine struct {
	log    logging.Logger
	client *client.Client
}

// NewDockerEngine creates a ContainerEngine backed by the local Docker
// daemon.
func NewDockerEngine(log logging.Logger, cfg ClientConfig) (ContainerEngine, error) {
	opts := []client.Opt{client.FromEnv}
	if cfg.Host != "" {
		opts = append(opts, client.WithHost(cfg.Host))
	}
	if cfg.APIVersion != "" {
		opts = append(opts, client.WithVersion(cfg.APIVersion))
	} else {
		opts = append(opts, client.WithAPIVersionNegotiation())
	}
	if cfg.TimeoutSeconds > 0 {
		opts = append(opts, client.WithTimeout(time.Duration(cfg.TimeoutSeconds)*time.Second))
	}
	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create Docker client: %w", err)
	}
	return &dockerEngine{log: log, client: cli}, nil
}

func (e *dockerEngine) RunContainer(ctx context.Context, params *binaries.RunParams) (string, error) {
	resp, err := e.client.ContainerCreate(ctx, params.Config, params.Host, nil, nil, "")
	if err != nil {
		return "", fmt.Errorf("failed to create serving container: %w", err)
	}
	if err := e.client.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		_ = e.client.ContainerRemove(ctx, resp.ID, container.RemoveOptions{Force: true})
		return "", fmt.Errorf("failed to start serving container %s: %w", shortID(resp.ID), err)
	}
	e.log.Infof("Started serving container %s", shortID(resp.ID))
	return resp.ID, nil
}

func (e *dockerEngine) ContainerStatus(ctx context.Context, containerID string) (Status, error) {
	// Inspect is the only authoritative source of container status; cached
	// state is never trusted.
	inspect, err := e.client.ContainerInspect(ctx, containerID)
	if err != nil {
		if cerrdefs.IsNotFound(err) {
			return "", fmt.Errorf("%w: %s", ErrContainerNotFound, shortID(containerID))
		}
		return "", fmt.Errorf("failed to inspect container %s: %w", shortID(containerID), err)
	}
	return Status(inspect.State.Status), nil
}

func (e *dockerEngine) ContainerLogs(ctx context.Context, containerID string, w io.Writer) error {
	reader, err := e.client.ContainerLogs(ctx, containerID, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     true,
	})
	if err != nil {
		return fmt.Errorf("failed to stream logs for container %s: %w", shortID(containerID), err)
	}
	defer reader.Close()

	// Demultiplex the engine's stdout/stderr framing into a single stream.
	if _, err := stdcopy.StdCopy(w, w, reader); err != nil && ctx.Err() == nil {
		return fmt.Errorf("failed to copy logs for container %s: %w", shortID(containerID), err)
	}
	return nil
}

func (e *dockerEngine) StopContainer(ctx context.Context, containerID string) error {
	timeout := stopGracePeriodSeconds
	if err := e.client.ContainerStop(ctx, containerID, container.StopOptions{Timeout: &timeout}); err != nil {
		return fmt.Errorf("failed to stop container %s: %w", shortID(containerID), err)
	}
	return nil
}

func (e *dockerEngine) Close() error {
	return e.client.Close()
}

// shortID truncates a container ID for logging.
func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
