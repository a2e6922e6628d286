package hypervisor

import (
	"bytes"
	"os/exec"
	"time"
)

// runner abstracts process spawning so driver tests can substitute fakes.
// Every hypervisor operation spawns its own short-lived process; there is no
// shared connection or pool.
type runner interface {
	// run executes to completion and returns captured stdout/stderr.
	run(name string, args ...string) (stdout, stderr string, err error)

	// detach spawns the process and waits up to grace for an immediate
	// failure. Exceeding the grace period without an explicit failure is
	// success: the process keeps running unsupervised.
	detach(grace time.Duration, name string, args ...string) (stderr string, err error)
}

type execRunner struct{}

func (execRunner) run(name string, args ...string) (string, string, error) {
	cmd := exec.Command(name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

func (execRunner) detach(grace time.Duration, name string, args ...string) (string, error) {
	cmd := exec.Command(name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Start(); err != nil {
		return stderr.String(), err
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case err := <-done:
		if err != nil {
			return stderr.String(), err
		}
		return "", nil
	case <-time.After(grace):
		// Still running after the grace period. Reap it eventually but
		// stop watching; no further supervision occurs.
		go func() { <-done }()
		return "", nil
	}
}
