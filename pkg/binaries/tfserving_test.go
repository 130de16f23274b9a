package binaries

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/docker/docker/api/types/mount"
	"github.com/docker/go-connections/nat"
	"github.com/stretchr/testify/require"

	"github.com/docker/model-validator/pkg/serving"
)

func TestNewTensorFlowServingInvalidImage(t *testing.T) {
	_, err := NewTensorFlowServing("tensorflow/serving:with spaces")
	require.Error(t, err)
}

func TestRunParamsLocalMount(t *testing.T) {
	// Lay out BASE/model/3 on disk so that local-mount mode is selected.
	base := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(base, "resnet", "3"), 0o755))
	loc := serving.Location{BasePath: base, ModelName: "resnet", Version: 3}

	b, err := NewTensorFlowServing("tensorflow/serving:2.15.0")
	require.NoError(t, err)
	params, err := b.RunParams(54321, loc)
	require.NoError(t, err)

	require.Equal(t, "tensorflow/serving:2.15.0", params.Config.Image)
	require.Contains(t, params.Config.Env, "MODEL_NAME=resnet")
	require.Contains(t, params.Config.Env, "MODEL_BASE_PATH=/models")

	require.Len(t, params.Host.Mounts, 1)
	m := params.Host.Mounts[0]
	require.Equal(t, mount.TypeBind, m.Type)
	require.Equal(t, loc.ModelPath(), m.Source)
	require.Equal(t, "/models/resnet", m.Target)
	require.True(t, m.ReadOnly)

	require.True(t, params.Host.AutoRemove)
	bindings := params.Host.PortBindings[nat.Port("8501/tcp")]
	require.Len(t, bindings, 1)
	require.Equal(t, strconv.Itoa(54321), bindings[0].HostPort)
}

func TestRunParamsBasePathMode(t *testing.T) {
	// The versioned directory does not exist locally, so the base path is
	// handed to the binary for in-container version discovery.
	loc := serving.Location{
		BasePath:  "gs://bucket/serving",
		ModelName: "my_model",
		Version:   7,
	}

	b, err := NewTensorFlowServing("tensorflow/serving")
	require.NoError(t, err)
	params, err := b.RunParams(12345, loc)
	require.NoError(t, err)

	require.Contains(t, params.Config.Env, "MODEL_BASE_PATH=gs://bucket/serving")
	require.Empty(t, params.Host.Mounts)
	require.True(t, params.Host.AutoRemove)
}

func TestRunParamsOptions(t *testing.T) {
	b, err := NewTensorFlowServing(
		"tensorflow/serving",
		WithArgs([]string{"--rest_api_timeout_in_ms=5000"}),
		WithMemoryLimit(1<<30),
		WithGPU(),
	)
	require.NoError(t, err)

	params, err := b.RunParams(8080, serving.Location{
		BasePath:  "/nonexistent",
		ModelName: "m",
		Version:   1,
	})
	require.NoError(t, err)

	require.Equal(t, []string{"--rest_api_timeout_in_ms=5000"}, []string(params.Config.Cmd))
	require.Equal(t, int64(1<<30), params.Host.Resources.Memory)
	require.Len(t, params.Host.Resources.DeviceRequests, 1)
	require.Equal(t, "nvidia", params.Host.Resources.DeviceRequests[0].Driver)
}
