// Package launcher starts trader binaries as child processes and reports
// their exits. Each child receives its trader id and the address it must
// dial back on.
package launcher

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"sync"
)

// Process is one launched trader binary.
type Process struct {
	ID  int
	Cmd *exec.Cmd
}

// Launcher tracks the trader processes of one run.
type Launcher struct {
	mu    sync.Mutex
	procs []*Process
}

func New() *Launcher {
	return &Launcher{}
}

// Start launches the binary with the trader id and dial-back address as
// arguments. The child inherits stdout and stderr. onExit, if set, runs on
// its own goroutine when the child terminates.
func (l *Launcher) Start(binary string, id int, addr string, onExit func(id int, err error)) (*Process, error) {
	cmd := exec.Command(binary, strconv.Itoa(id), addr)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start trader %d (%s): %w", id, binary, err)
	}

	p := &Process{ID: id, Cmd: cmd}
	l.mu.Lock()
	l.procs = append(l.procs, p)
	l.mu.Unlock()

	go func() {
		err := cmd.Wait()
		if onExit != nil {
			onExit(id, err)
		}
	}()
	return p, nil
}

// Kill terminates every still-running child. Used on abnormal shutdown;
// the normal path is children exiting on their own.
func (l *Launcher) Kill() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, p := range l.procs {
		if p.Cmd.Process != nil {
			p.Cmd.Process.Kill()
		}
	}
}
