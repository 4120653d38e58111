//go:build linux && amd64

package trace

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/E4S-Project/e4s-cl/internal/pkg/sylog"
)

// gracePeriod is how long a cancelled trace waits for the traced process
// group to exit after SIGTERM before escalating to SIGKILL (spec 4.2/5).
const gracePeriod = 10 * time.Second

// pathSyscalls maps a syscall number to the register holding its first
// path-shaped argument, per the amd64 System V calling convention (Rdi,
// Rsi, Rdx, R10, R8, R9 for args 1-6).
var pathSyscalls = map[uint64]func(*unix.PtraceRegs) uint64{
	unix.SYS_OPEN:         func(r *unix.PtraceRegs) uint64 { return r.Rdi },
	unix.SYS_OPENAT:       func(r *unix.PtraceRegs) uint64 { return r.Rsi },
	unix.SYS_EXECVE:       func(r *unix.PtraceRegs) uint64 { return r.Rdi },
	unix.SYS_STAT:         func(r *unix.PtraceRegs) uint64 { return r.Rdi },
	unix.SYS_LSTAT:        func(r *unix.PtraceRegs) uint64 { return r.Rdi },
	unix.SYS_NEWFSTATAT:   func(r *unix.PtraceRegs) uint64 { return r.Rsi },
	unix.SYS_ACCESS:       func(r *unix.PtraceRegs) uint64 { return r.Rdi },
	unix.SYS_READLINK:     func(r *unix.PtraceRegs) uint64 { return r.Rdi },
	unix.SYS_READLINKAT:   func(r *unix.PtraceRegs) uint64 { return r.Rsi },
}

func trace(ctx context.Context, argv []string, env []string, opts Options) (Result, error) {
	cmd := newCommand(argv, env, opts)
	cmd.SysProcAttr = &syscall.SysProcAttr{Ptrace: true, Setpgid: true}

	if err := cmd.Start(); err != nil {
		return Result{}, ErrPtraceUnavailable
	}
	pid := cmd.Process.Pid

	var ws unix.WaitStatus
	if _, err := unix.Wait4(pid, &ws, 0, nil); err != nil {
		return Result{}, ErrPtraceUnavailable
	}

	// Track forked/cloned children too (spec 4.2: "any child it forks").
	const traceOpts = unix.PTRACE_O_TRACECLONE | unix.PTRACE_O_TRACEFORK | unix.PTRACE_O_TRACEVFORK | unix.PTRACE_O_TRACEEXIT
	if err := unix.PtraceSetOptions(pid, traceOpts); err != nil {
		return Result{}, ErrPtraceUnavailable
	}

	cancelled := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			pgid, err := unix.Getpgid(pid)
			if err != nil {
				pgid = pid
			}
			_ = unix.Kill(-pgid, unix.SIGTERM)
			select {
			case <-time.After(gracePeriod):
				_ = unix.Kill(-pgid, unix.SIGKILL)
			case <-cancelled:
			}
		case <-cancelled:
		}
	}()
	defer close(cancelled)

	result := Result{}
	entering := map[int]bool{pid: true}
	live := map[int]bool{pid: true}

	if err := unix.PtraceSyscall(pid, 0); err != nil {
		return Result{}, ErrPtraceUnavailable
	}

	for len(live) > 0 {
		var status unix.WaitStatus
		wpid, err := unix.Wait4(-1, &status, 0, nil)
		if err != nil {
			break
		}

		if status.Exited() || status.Signaled() {
			delete(live, wpid)
			delete(entering, wpid)
			if wpid == pid {
				result.ExitStatus = status.ExitStatus()
			}
			continue
		}

		if !status.Stopped() {
			_ = unix.PtraceSyscall(wpid, 0)
			continue
		}

		sig := status.StopSignal()
		if event := status.TrapCause(); sig == unix.SIGTRAP && event != 0 {
			// PTRACE_EVENT_{FORK,VFORK,CLONE}: a new tracee appeared,
			// already stopped and inheriting our trace options. Other
			// events (PTRACE_EVENT_EXIT) are just resumed.
			if event == unix.PTRACE_EVENT_FORK || event == unix.PTRACE_EVENT_VFORK || event == unix.PTRACE_EVENT_CLONE {
				if newPid, err := unix.PtraceGetEventMsg(wpid); err == nil {
					live[int(newPid)] = true
					entering[int(newPid)] = true
				}
			}
			_ = unix.PtraceSyscall(wpid, 0)
			continue
		}

		if sig == unix.SIGTRAP {
			if entering[wpid] {
				var regs unix.PtraceRegs
				if err := unix.PtraceGetRegs(wpid, &regs); err == nil {
					if argReg, ok := pathSyscalls[regs.Orig_rax]; ok {
						if p, err := readCString(wpid, argReg(&regs)); err == nil && p != "" {
							result.ObservedPaths = append(result.ObservedPaths, canonicalize(wpid, p))
						} else if opts.Verbose && err != nil {
							sylog.Debugf("trace: could not read path argument for syscall %d in pid %d: %v", regs.Orig_rax, wpid, err)
						}
					}
				}
			}
			entering[wpid] = !entering[wpid]
			_ = unix.PtraceSyscall(wpid, 0)
			continue
		}

		// Any other signal: pass it through to the tracee untouched.
		_ = unix.PtraceSyscall(wpid, int(sig))
	}

	return result, nil
}

// canonicalize resolves a path argument observed in pid relative to that
// tracee's own cwd, not e4s-cl's (spec 4.2: "canonicalized relative to the
// child's cwd and then normalized"). A path already absolute is only
// cleaned; the /proc/<pid>/cwd lookup is best-effort, since the tracee may
// have already exited by the time we read it.
func canonicalize(pid int, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	cwd, err := os.Readlink(fmt.Sprintf("/proc/%d/cwd", pid))
	if err != nil {
		return filepath.Clean(p)
	}
	return filepath.Clean(filepath.Join(cwd, p))
}

// readCString reads a NUL-terminated string from the tracee's memory at
// addr, word by word via PTRACE_PEEKDATA.
func readCString(pid int, addr uint64) (string, error) {
	const wordSize = 8
	var buf []byte
	word := make([]byte, wordSize)

	for len(buf) < 4096 {
		if _, err := unix.PtracePeekData(pid, uintptr(addr)+uintptr(len(buf)), word); err != nil {
			return "", err
		}
		for _, b := range word {
			if b == 0 {
				return string(buf), nil
			}
			buf = append(buf, b)
		}
	}
	return string(buf), nil
}
