package validator

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// defaultProbeInterval is the interval at which readiness probes retry.
const defaultProbeInterval = 500 * time.Millisecond

// ProbeReadiness polls the model server's REST endpoint until the model
// reports as available, the deadline passes, or ctx is cancelled. A GET on
// /v1/models/{name} answering 200 means the server has loaded the model and
// is ready for validation traffic. A non-positive interval uses the default.
func ProbeReadiness(ctx context.Context, endpoint, modelName string, deadline time.Time, interval time.Duration) error {
	if interval <= 0 {
		interval = defaultProbeInterval
	}
	client := &http.Client{Timeout: interval}
	url := fmt.Sprintf("http://%s/v1/models/%s", endpoint, modelName)

	for time.Now().Before(deadline) {
		request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
		if err != nil {
			return fmt.Errorf("readiness request creation failed: %w", err)
		}
		response, err := client.Do(request)
		if err == nil {
			response.Body.Close()
			if response.StatusCode == http.StatusOK {
				return nil
			}
		}
		select {
		case <-time.After(interval):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("%w: model %q never became available at %s",
		ErrDeadlineExceeded, modelName, endpoint)
}
