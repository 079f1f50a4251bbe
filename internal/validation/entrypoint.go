package validation

import (
	"context"
	"time"

	"github.com/proteingym/pg2-benchmark/internal/docker"
)

// ContainerRunner runs a container; docker.RunContainer in production.
type ContainerRunner func(ctx context.Context, opts *docker.RunOpts) (*docker.RunResult, error)

// CheckEntryPoint runs "<entryPoint> --help" in image and records whether the
// command exists.
func (r *Report) CheckEntryPoint(ctx context.Context, run ContainerRunner, image, entryPoint string) {
	if run == nil {
		run = docker.RunContainer
	}
	res, err := run(ctx, &docker.RunOpts{
		Image:   image,
		Command: []string{entryPoint, "--help"},
		Timeout: 2 * time.Minute,
		LogTail: "20",
	})
	switch {
	case err != nil:
		r.fail("container", "Could not run %s: %v", image, err)
	case res.TimedOut:
		r.fail("container", "%s %s --help timed out", image, entryPoint)
	case res.ExitCode != 0:
		r.fail("container", "%s %s --help exited %d", image, entryPoint, res.ExitCode)
	default:
		r.pass("container", "Image %s exposes %s", image, entryPoint)
	}
}
