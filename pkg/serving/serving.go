// Package serving resolves servable model directories laid out using the
// BASE_PATH/MODEL_NAME/VERSION convention understood by TensorFlow Serving
// and compatible model servers.
package serving

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidModelPath is a sentinel error returned by ParseModelPath when a
// path does not follow the BASE_PATH/MODEL_NAME/VERSION layout.
var ErrInvalidModelPath = errors.New("invalid servable model path")

// Location identifies a single servable model version. It is immutable after
// resolution.
type Location struct {
	// BasePath is the directory holding one subdirectory per model name. It
	// may be a remote URI (e.g. an object store path) that is only resolvable
	// inside the container runtime's view.
	BasePath string
	// ModelName is the name of the model, i.e. the second-to-last path
	// segment.
	ModelName string
	// Version is the non-negative integer version, i.e. the last path
	// segment.
	Version int
}

// ModelPath returns BASE_PATH/MODEL_NAME.
func (l Location) ModelPath() string {
	return l.BasePath + "/" + l.ModelName
}

// VersionPath returns BASE_PATH/MODEL_NAME/VERSION.
func (l Location) VersionPath() string {
	return l.ModelPath() + "/" + strconv.Itoa(l.Version)
}

// ParseModelPath splits a servable path into its base path, model name and
// version. The last segment must consist solely of decimal digits. No
// filesystem access is performed; remote URIs are split verbatim.
func ParseModelPath(modelPath string) (Location, error) {
	parent, versionSegment := splitLast(modelPath)
	if !isVersion(versionSegment) {
		return Location{}, fmt.Errorf(
			"%w: %q does not conform to the BASE_PATH/MODEL_NAME/VERSION serving directory structure",
			ErrInvalidModelPath, modelPath)
	}
	version, err := strconv.Atoi(versionSegment)
	if err != nil {
		return Location{}, fmt.Errorf("%w: version segment %q overflows: %v",
			ErrInvalidModelPath, versionSegment, err)
	}
	basePath, modelName := splitLast(parent)
	return Location{
		BasePath:  basePath,
		ModelName: modelName,
		Version:   version,
	}, nil
}

// splitLast splits p around its final path separator, mirroring os.path.split
// semantics: no cleaning, so remote URI schemes survive intact.
func splitLast(p string) (string, string) {
	i := strings.LastIndex(p, "/")
	if i < 0 {
		return "", p
	}
	return p[:i], p[i+1:]
}

// isVersion reports whether s is a non-empty string of decimal digits.
func isVersion(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
