// Package toolexec runs external raster tools and streams their output
// into the logger. Clients depend on the Executor interface so tests can
// fake tool behavior without spawning processes.
package toolexec

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
)

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onOutput func(string)) error
}

// CommandExecutor executes real processes. External invocations are
// synchronous blocking calls with no timeout: a hung tool hangs the run,
// which is a documented limitation of the pipeline.
type CommandExecutor struct{}

func (CommandExecutor) Run(ctx context.Context, binary string, args []string, onOutput func(string)) error {
	cmd := exec.CommandContext(ctx, binary, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", binary, err)
	}

	var wg sync.WaitGroup
	var scanErr error
	var once sync.Once

	scan := func(r io.Reader) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			line := scanner.Text()
			if onOutput != nil {
				onOutput(line)
			} else {
				fmt.Fprintln(os.Stderr, line)
			}
		}
		if err := scanner.Err(); err != nil {
			once.Do(func() { scanErr = err })
		}
	}

	wg.Add(2)
	go scan(stdout)
	go scan(stderr)
	wg.Wait()

	if scanErr != nil {
		_ = cmd.Process.Kill()
		return fmt.Errorf("scan output: %w", scanErr)
	}
	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("%s: %w", binary, err)
	}
	return nil
}
