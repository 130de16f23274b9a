// Package validator launches a throwaway model serving container and drives
// it through a start, wait, validate, stop lifecycle so that a trained model
// artifact can be proven servable before it is promoted.
package validator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/docker/model-validator/pkg/binaries"
	"github.com/docker/model-validator/pkg/logging"
	"github.com/docker/model-validator/pkg/ports"
	"github.com/docker/model-validator/pkg/serving"
)

// defaultPollInterval is the interval at which the runner re-polls the
// container engine while the container is still in its created state.
const defaultPollInterval = time.Second

// Event identifies a lifecycle transition of a model server runner.
type Event string

// Lifecycle events delivered to an Observer, in the order they can occur:
// started, then either ready or aborted, then stopped.
const (
	EventStarted Event = "started"
	EventReady   Event = "ready"
	EventAborted Event = "aborted"
	EventStopped Event = "stopped"
)

// Observer receives lifecycle event notifications. Observers are invoked
// synchronously from the runner's calling goroutine; tests use them to
// assert ordering without shared global state.
type Observer func(Event)

// Config is the serving configuration for a validation run.
type Config struct {
	// ModelName is the name under which the model is expected to be served.
	// It must match the model name encoded in the servable path.
	ModelName string
	// Client configures the Docker engine client. Used only to construct the
	// engine, not by the runner logic itself.
	Client ClientConfig
}

// Runner owns at most one serving container at a time. Its operations are
// sequential, blocking calls made by a single caller; a Runner is not safe
// for concurrent use. Stop must run on every exit path of the owning scope
// so that the engine client cannot leak.
type Runner struct {
	log          logging.Logger
	engine       ContainerEngine
	binary       binaries.Binary
	location     serving.Location
	observer     Observer
	pollInterval time.Duration

	containerID string
	endpoint    string
}

// Option configures a Runner.
type Option func(*Runner)

// WithObserver installs a lifecycle event observer.
func WithObserver(observer Observer) Option {
	return func(r *Runner) {
		r.observer = observer
	}
}

// WithPollInterval overrides the status poll interval. Intended for tests.
func WithPollInterval(interval time.Duration) Option {
	return func(r *Runner) {
		r.pollInterval = interval
	}
}

// NewRunner creates a runner for the servable at modelPath. The path is
// resolved eagerly and its model name validated against cfg.ModelName, so
// misconfiguration fails here rather than at Start.
func NewRunner(log logging.Logger, engine ContainerEngine, binary binaries.Binary, modelPath string, cfg Config, opts ...Option) (*Runner, error) {
	location, err := serving.ParseModelPath(modelPath)
	if err != nil {
		return nil, err
	}
	if location.ModelName != cfg.ModelName {
		return nil, fmt.Errorf("%w: configured %q, path declares %q",
			ErrModelNameMismatch, cfg.ModelName, location.ModelName)
	}
	r := &Runner{
		log:          log,
		engine:       engine,
		binary:       binary,
		location:     location,
		pollInterval: defaultPollInterval,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Start allocates a host port, builds run parameters for the configured
// binary and asks the container engine to run a detached, auto-removing
// serving container. On failure no container handle is retained. Calling
// Start on a runner that already holds a container is a programming error
// and panics.
func (r *Runner) Start(ctx context.Context) error {
	if r.containerID != "" {
		panic("model server runner started twice without an intervening Stop")
	}

	hostPort, err := ports.AllocatePort()
	if err != nil {
		return err
	}
	endpoint := fmt.Sprintf("localhost:%d", hostPort)

	var params *binaries.RunParams
	switch binary := r.binary.(type) {
	case *binaries.TensorFlowServing:
		params, err = binary.RunParams(hostPort, r.location)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedBinary, r.binary)
	}

	r.log.Infof("Starting model server %s for model %q on %s",
		r.binary.Image(), r.location.ModelName, endpoint)
	containerID, err := r.engine.RunContainer(ctx, params)
	if err != nil {
		return err
	}
	r.containerID = containerID
	r.endpoint = endpoint
	r.notify(EventStarted)
	return nil
}

// Endpoint returns the host:port address of the serving container. It is
// valid only once Start has succeeded; calling it earlier is a programming
// error and panics.
func (r *Runner) Endpoint() string {
	if r.endpoint == "" {
		panic("endpoint is not available until Start() has succeeded")
	}
	return r.endpoint
}

// WaitUntilRunning polls the container engine until the serving container is
// running, the job aborts, or the deadline passes. The engine's refreshed
// status is the only source of truth. A created container is the only state
// worth retrying; a missing container or any status other than created and
// running means the job died before reaching steady state and is classified
// as ErrJobAborted. Engine connectivity errors propagate unclassified.
func (r *Runner) WaitUntilRunning(ctx context.Context, deadline time.Time) error {
	if r.containerID == "" {
		panic("model server has not been started")
	}

	for time.Now().Before(deadline) {
		status, err := r.engine.ContainerStatus(ctx, r.containerID)
		if err != nil {
			if errors.Is(err, ErrContainerNotFound) {
				// Auto-removal deletes a container as soon as its process
				// exits, so a vanished container means the job was aborted.
				r.notify(EventAborted)
				return fmt.Errorf("%w: container not found, possibly removed after exiting", ErrJobAborted)
			}
			return err
		}
		switch status {
		case StatusCreated:
			select {
			case <-time.After(r.pollInterval):
			case <-ctx.Done():
				return ctx.Err()
			}
		case StatusRunning:
			r.log.Infof("Model server is running at %s", r.endpoint)
			r.notify(EventReady)
			return nil
		default:
			r.notify(EventAborted)
			return fmt.Errorf("%w: container entered status %q before running", ErrJobAborted, status)
		}
	}
	return fmt.Errorf("%w: container was not running by %s",
		ErrDeadlineExceeded, deadline.Format(time.RFC3339))
}

// StreamLogs copies the serving container's combined output into w until the
// container stops or ctx is cancelled. It requires a started runner.
func (r *Runner) StreamLogs(ctx context.Context, w io.Writer) error {
	if r.containerID == "" {
		panic("model server has not been started")
	}
	return r.engine.ContainerLogs(ctx, r.containerID, w)
}

// Stop stops the serving container if one is held and releases the engine
// client. A failure to stop the container is logged but does not prevent the
// client release. Stop is safe to call on a runner that never started.
func (r *Runner) Stop(ctx context.Context) error {
	if r.containerID != "" {
		r.log.Infof("Stopping serving container %s", shortID(r.containerID))
		if err := r.engine.StopContainer(ctx, r.containerID); err != nil {
			r.log.Warnf("Unable to stop serving container: %v", err)
		}
		r.containerID = ""
		r.endpoint = ""
		r.notify(EventStopped)
	}
	return r.engine.Close()
}

func (r *Runner) notify(event Event) {
	if r.observer != nil {
		r.observer(event)
	}
}
