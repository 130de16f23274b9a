package binaries

import (
	"fmt"
	"os"
	"strconv"

	"github.com/distribution/reference"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/go-connections/nat"

	"github.com/docker/model-validator/pkg/serving"
)

const (
	// tensorflowServingPort is the REST API port inside tensorflow/serving
	// containers.
	tensorflowServingPort = nat.Port("8501/tcp")
	// containerModelRoot is the directory inside the container under which
	// locally visible models are mounted.
	containerModelRoot = "/models"
)

// TensorFlowServing describes a TensorFlow-Serving-style binary: the image
// entrypoint discovers the model through the MODEL_NAME and MODEL_BASE_PATH
// environment variables.
type TensorFlowServing struct {
	image       string
	args        []string
	memoryBytes int64
	gpu         bool
}

// TensorFlowServingOption configures a TensorFlowServing binary.
type TensorFlowServingOption func(*TensorFlowServing)

// WithArgs appends extra command-line arguments for the serving binary.
func WithArgs(args []string) TensorFlowServingOption {
	return func(b *TensorFlowServing) {
		b.args = args
	}
}

// WithMemoryLimit caps the serving container's memory, in bytes.
func WithMemoryLimit(bytes int64) TensorFlowServingOption {
	return func(b *TensorFlowServing) {
		b.memoryBytes = bytes
	}
}

// WithGPU requests all available NVIDIA GPUs for the serving container.
func WithGPU() TensorFlowServingOption {
	return func(b *TensorFlowServing) {
		b.gpu = true
	}
}

// NewTensorFlowServing creates a TensorFlow Serving binary descriptor for the
// given image reference. The reference is validated eagerly so that a typo
// fails before any container is created.
func NewTensorFlowServing(image string, opts ...TensorFlowServingOption) (*TensorFlowServing, error) {
	if _, err := reference.ParseNormalizedNamed(image); err != nil {
		return nil, fmt.Errorf("invalid serving image reference %q: %w", image, err)
	}
	b := &TensorFlowServing{image: image}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Image implements Binary.Image.
func (b *TensorFlowServing) Image() string {
	return b.image
}

// RunParams implements Binary.RunParams. If the fully-versioned model
// directory is visible on this host, the model directory is bind-mounted into
// the container; otherwise the base path is handed to the binary unchanged
// and version discovery happens inside the container's view of storage,
// which may differ from the host's for remote-backed paths.
func (b *TensorFlowServing) RunParams(hostPort int, loc serving.Location) (*RunParams, error) {
	env := []string{"MODEL_NAME=" + loc.ModelName}
	host := &container.HostConfig{
		AutoRemove: true,
		PortBindings: nat.PortMap{
			tensorflowServingPort: []nat.PortBinding{
				{HostIP: "", HostPort: strconv.Itoa(hostPort)},
			},
		},
	}

	if _, err := os.Stat(loc.VersionPath()); err == nil {
		host.Mounts = []mount.Mount{
			{
				Type:     mount.TypeBind,
				Source:   loc.ModelPath(),
				Target:   containerModelRoot + "/" + loc.ModelName,
				ReadOnly: true,
			},
		}
		env = append(env, "MODEL_BASE_PATH="+containerModelRoot)
	} else {
		env = append(env, "MODEL_BASE_PATH="+loc.BasePath)
	}

	if b.memoryBytes > 0 {
		host.Resources.Memory = b.memoryBytes
	}
	if b.gpu {
		host.Resources.DeviceRequests = []container.DeviceRequest{
			{
				Driver:       "nvidia",
				Count:        -1,
				Capabilities: [][]string{{"gpu"}},
			},
		}
	}

	config := &container.Config{
		Image: b.image,
		Env:   env,
		Cmd:   b.args,
		ExposedPorts: nat.PortSet{
			tensorflowServingPort: struct{}{},
		},
		Labels: map[string]string{
			labelRole: roleServing,
		},
	}
	return &RunParams{Config: config, Host: host}, nil
}
