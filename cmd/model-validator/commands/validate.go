package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/docker/go-units"
	"github.com/mattn/go-shellwords"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/docker/model-validator/pkg/binaries"
	"github.com/docker/model-validator/pkg/logtail"
	"github.com/docker/model-validator/pkg/validator"
)

var log = logrus.New()

// stopTimeout bounds the cleanup performed after a validation run, which must
// complete even when the run's own context is already cancelled.
const stopTimeout = 30 * time.Second

const binaryTensorFlowServing = "tensorflow-serving"

func newValidateCmd() *cobra.Command {
	var (
		modelPath        string
		modelName        string
		image            string
		binaryKind       string
		deadline         time.Duration
		servingArgs      string
		memoryLimit      string
		gpu              bool
		dockerHost       string
		dockerAPIVersion string
		dockerTimeout    int
		tailLines        int
	)
	c := &cobra.Command{
		Use:   "validate [OPTIONS]",
		Short: "Launch a throwaway serving container and wait until it serves the model",
		RunE: func(cmd *cobra.Command, args []string) error {
			binary, err := buildBinary(binaryKind, image, servingArgs, memoryLimit, gpu)
			if err != nil {
				return err
			}

			clientConfig := validator.ClientConfig{
				Host:           dockerHost,
				APIVersion:     dockerAPIVersion,
				TimeoutSeconds: dockerTimeout,
			}
			engine, err := validator.NewDockerEngine(
				log.WithField("component", "engine"), clientConfig)
			if err != nil {
				return err
			}

			runner, err := validator.NewRunner(
				log.WithField("component", "runner"),
				engine, binary, modelPath,
				validator.Config{ModelName: modelName, Client: clientConfig},
			)
			if err != nil {
				// The runner never took ownership of the engine client.
				_ = engine.Close()
				return err
			}
			return runValidation(cmd.Context(), runner, modelName, deadline, tailLines)
		},
	}

	c.Flags().StringVar(&modelPath, "model-path", "", "Servable path in {base_path}/{model_name}/{version} form")
	c.Flags().StringVar(&modelName, "model-name", "", "Name the model must be served under")
	c.Flags().StringVar(&image, "image", "tensorflow/serving", "Serving image reference")
	c.Flags().StringVar(&binaryKind, "binary", binaryTensorFlowServing, "Serving binary flavor")
	c.Flags().DurationVar(&deadline, "deadline", 5*time.Minute, "How long to wait for the model server to become ready")
	c.Flags().StringVar(&servingArgs, "serving-args", "", "Extra arguments for the serving binary, shell-quoted")
	c.Flags().StringVar(&memoryLimit, "memory", "", "Memory limit for the serving container (e.g. 2g)")
	c.Flags().BoolVar(&gpu, "gpu", false, "Give the serving container access to all NVIDIA GPUs")
	c.Flags().StringVar(&dockerHost, "docker-host", "", "Docker daemon address (defaults to the environment)")
	c.Flags().StringVar(&dockerAPIVersion, "docker-api-version", "", "Pin the Docker API version instead of negotiating it")
	c.Flags().IntVar(&dockerTimeout, "docker-timeout", 0, "Per-request Docker API timeout in seconds")
	c.Flags().IntVar(&tailLines, "log-tail", 50, "Serving log lines to report when validation fails")
	_ = c.MarkFlagRequired("model-path")
	_ = c.MarkFlagRequired("model-name")
	return c
}

// buildBinary resolves the --binary flag into a serving binary descriptor.
func buildBinary(kind, image, servingArgs, memoryLimit string, gpu bool) (binaries.Binary, error) {
	var opts []binaries.TensorFlowServingOption
	if servingArgs != "" {
		args, err := shellwords.Parse(servingArgs)
		if err != nil {
			return nil, fmt.Errorf("unable to parse serving arguments: %w", err)
		}
		opts = append(opts, binaries.WithArgs(args))
	}
	if memoryLimit != "" {
		bytes, err := units.RAMInBytes(memoryLimit)
		if err != nil {
			return nil, fmt.Errorf("unable to parse memory limit %q: %w", memoryLimit, err)
		}
		opts = append(opts, binaries.WithMemoryLimit(bytes))
	}
	if gpu {
		opts = append(opts, binaries.WithGPU())
	}

	switch kind {
	case binaryTensorFlowServing:
		return binaries.NewTensorFlowServing(image, opts...)
	default:
		return nil, fmt.Errorf("%w: %q", validator.ErrUnsupportedBinary, kind)
	}
}

// runValidation drives the runner through its full lifecycle. The serving
// container's output is tailed throughout so that an abort can report the
// server's final words.
func runValidation(ctx context.Context, runner *validator.Runner, modelName string, deadline time.Duration, tailLines int) error {
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		if err := runner.Stop(stopCtx); err != nil {
			log.Warnf("Unable to release the model server runner: %v", err)
		}
	}()

	if err := runner.Start(ctx); err != nil {
		return err
	}

	tail := logtail.New(tailLines)
	logCtx, cancelLogs := context.WithCancel(ctx)
	defer cancelLogs()
	var logGroup errgroup.Group
	logGroup.Go(func() error {
		return runner.StreamLogs(logCtx, tail)
	})

	limit := time.Now().Add(deadline)
	if err := runner.WaitUntilRunning(ctx, limit); err != nil {
		if errors.Is(err, validator.ErrJobAborted) {
			reportTail(tail)
		}
		return err
	}
	if err := validator.ProbeReadiness(ctx, runner.Endpoint(), modelName, limit, 0); err != nil {
		reportTail(tail)
		return err
	}

	log.Infof("Model %q is servable at %s", modelName, runner.Endpoint())
	cancelLogs()
	_ = logGroup.Wait()
	return nil
}

func reportTail(tail *logtail.Buffer) {
	lines := tail.Lines()
	if len(lines) == 0 {
		return
	}
	log.Error("Last output of the serving container:")
	for _, line := range lines {
		log.Errorf("  %s", line)
	}
}
