package process

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/faqwang/Ngork.cc-third-party-GUI/internal/logger"
)

const (
	// HistoryLimit bounds the per-tunnel log history kept in memory.
	HistoryLimit = 2000

	stopTimeout = 5 * time.Second
)

var (
	ErrAlreadyRunning = errors.New("tunnel is already running")
	ErrNotRunning     = errors.New("tunnel is not running")
)

// MissingExecutableError reports that the tunneling binary is not installed.
type MissingExecutableError struct {
	Path string
}

func (e *MissingExecutableError) Error() string {
	return fmt.Sprintf("tunneling executable not found at %s", e.Path)
}

// LineSink receives decoded output lines from the child process.
type LineSink func(line string)

// Entry is one line of tunnel log history.
type Entry struct {
	When time.Time
	Line string
}

// Runner owns the lifecycle of one child process for one tunnel: spawn with
// the tunnel's server and key, stream combined stdout+stderr into the sink,
// and terminate on Stop. There is no retry or backoff; a failed launch is
// surfaced to the caller and that is the end of it.
type Runner struct {
	tunnelID   string
	tunnelName string
	exePath    string
	log        logger.Logger

	mu       sync.Mutex
	cmd      *exec.Cmd
	running  bool
	stopping bool
	sink     LineSink
	done     chan struct{}
	history  []Entry

	// deliverMu serializes sink invocations so Stop can wait out a delivery
	// already in flight before it returns.
	deliverMu sync.Mutex
}

func NewRunner(tunnelID, tunnelName, exePath string, log logger.Logger) *Runner {
	return &Runner{
		tunnelID:   tunnelID,
		tunnelName: tunnelName,
		exePath:    exePath,
		log:        log,
	}
}

// Start spawns the tunneling binary. Starting an already-running tunnel is
// rejected with ErrAlreadyRunning; the caller decides how to surface that.
func (r *Runner) Start(server, key string, sink LineSink) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return ErrAlreadyRunning
	}

	if _, err := os.Stat(r.exePath); err != nil {
		return &MissingExecutableError{Path: r.exePath}
	}

	cmd := exec.Command(r.exePath, "-s", server, "-k", key, "-l", "stdout")
	hideWindow(cmd)

	pr, pw, err := os.Pipe()
	if err != nil {
		return fmt.Errorf("create output pipe: %w", err)
	}
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		pr.Close()
		pw.Close()
		return fmt.Errorf("launch %s: %w", r.exePath, err)
	}
	// The parent's copy of the write end must go away so the reader sees EOF
	// when the child exits.
	pw.Close()

	r.cmd = cmd
	r.running = true
	r.stopping = false
	r.sink = sink
	r.done = make(chan struct{})

	r.log.Info("process", "tunnel started", map[string]interface{}{
		"tunnel": r.tunnelName,
		"pid":    cmd.Process.Pid,
		"server": server,
	})

	go r.readOutput(pr)
	go r.waitExit()

	return nil
}

func (r *Runner) readOutput(pr *os.File) {
	defer pr.Close()

	decoder := &lineDecoder{}
	scanner := bufio.NewScanner(pr)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		r.emit(decoder.Decode(scanner.Bytes()))
	}
	if err := scanner.Err(); err != nil {
		r.emit(fmt.Sprintf("log read error: %v", err))
	}
}

func (r *Runner) waitExit() {
	err := r.cmd.Wait()

	r.mu.Lock()
	wasStopping := r.stopping
	r.running = false
	done := r.done
	name := r.tunnelName
	r.mu.Unlock()

	if !wasStopping {
		state := "exited"
		if err != nil {
			state = err.Error()
		}
		r.emit(fmt.Sprintf("tunnel process %s", state))
		r.log.Warning("process", "tunnel exited on its own", map[string]interface{}{
			"tunnel": name,
			"error":  fmt.Sprint(err),
		})
	}
	close(done)
}

// Stop terminates the tracked process: polite signal first, kill after the
// timeout. Once Stop returns, the sink receives no further lines.
func (r *Runner) Stop() error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return ErrNotRunning
	}
	r.stopping = true
	r.sink = nil
	cmd := r.cmd
	done := r.done
	name := r.tunnelName
	r.mu.Unlock()

	// Any emit that captured the sink before it was cleared finishes here.
	r.deliverMu.Lock()
	r.deliverMu.Unlock()

	terminate(cmd)

	select {
	case <-done:
	case <-time.After(stopTimeout):
		cmd.Process.Kill()
		<-done
	}

	r.mu.Lock()
	r.running = false
	r.cmd = nil
	r.mu.Unlock()

	r.log.Info("process", "tunnel stopped", map[string]interface{}{
		"tunnel": name,
	})
	return nil
}

func (r *Runner) setName(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tunnelName = name
}

func (r *Runner) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Pid returns the child pid, or 0 when nothing is running.
func (r *Runner) Pid() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running || r.cmd == nil || r.cmd.Process == nil {
		return 0
	}
	return r.cmd.Process.Pid
}

// emit records a line into history and forwards it to the sink. The delivery
// lock is held across the sink call; a reader descheduled between capturing
// the sink and invoking it must not slip a line past a completed Stop.
func (r *Runner) emit(line string) {
	r.deliverMu.Lock()
	defer r.deliverMu.Unlock()

	r.mu.Lock()
	r.appendHistoryLocked(Entry{When: time.Now(), Line: line})
	sink := r.sink
	r.mu.Unlock()

	if sink != nil {
		sink(line)
	}
}

// Append records a line into history without going through the child process.
// The UI uses it for operator-facing messages like "starting tunnel".
func (r *Runner) Append(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.appendHistoryLocked(Entry{When: time.Now(), Line: line})
}

func (r *Runner) appendHistoryLocked(e Entry) {
	r.history = append(r.history, e)
	if len(r.history) > HistoryLimit {
		r.history = r.history[len(r.history)-HistoryLimit:]
	}
}

func (r *Runner) History() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.history))
	copy(out, r.history)
	return out
}

func (r *Runner) ClearHistory() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history = nil
}
