//go:build !windows

package backend

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"

	"github.com/creack/pty"
	"golang.org/x/sys/unix"
)

const (
	defaultCols = 120
	defaultRows = 32
)

type unixProc struct {
	cmd  *exec.Cmd
	ptmx *os.File
}

func startProc(opts Options) (proc, error) {
	shell := opts.Shell
	if shell == "" {
		shell = defaultShell()
	}

	cmd := exec.Command(shell)
	cmd.Dir = opts.Dir
	if len(opts.Env) > 0 {
		env := os.Environ()
		for key, value := range opts.Env {
			env = append(env, key+"="+value)
		}
		cmd.Env = env
	}

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Cols: defaultCols, Rows: defaultRows})
	if err != nil {
		return nil, fmt.Errorf("start pty: %w", err)
	}
	return &unixProc{cmd: cmd, ptmx: ptmx}, nil
}

func defaultShell() string {
	if sh := os.Getenv("SHELL"); sh != "" {
		return sh
	}
	return "/bin/sh"
}

func (p *unixProc) Write(data []byte) (int, error) {
	return p.ptmx.Write(data)
}

func (p *unixProc) Output() io.Reader {
	return p.ptmx
}

func (p *unixProc) Resize(cols int, rows int) error {
	return pty.Setsize(p.ptmx, &pty.Winsize{Cols: uint16(cols), Rows: uint16(rows)})
}

func (p *unixProc) Terminate() error {
	if p.cmd.Process == nil {
		return nil
	}
	if err := p.cmd.Process.Signal(unix.SIGTERM); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}

// Wait blocks until the shell exits. A SIGTERM death is a requested close,
// not a failure, so it reports success.
func (p *unixProc) Wait() error {
	err := p.cmd.Wait()
	_ = p.ptmx.Close()

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() && ws.Signal() == unix.SIGTERM {
			return nil
		}
	}
	return err
}
