package process

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/faqwang/Ngork.cc-third-party-GUI/internal/logger"
)

// writeFakeCore drops a shell script standing in for the tunneling binary.
// The script ignores the -s/-k/-l arguments the runner passes.
func writeFakeCore(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake core script requires a shell")
	}
	path := filepath.Join(t.TempDir(), "sunny")
	script := "#!/bin/sh\n" + body
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write fake core: %v", err)
	}
	return path
}

type sinkRecorder struct {
	mu    sync.Mutex
	lines []string
}

func (s *sinkRecorder) sink(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, line)
}

func (s *sinkRecorder) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lines)
}

func (s *sinkRecorder) snapshot() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.lines...)
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", timeout)
}

func TestRunnerStreamsOutput(t *testing.T) {
	exe := writeFakeCore(t, "echo one\necho two 1>&2\n")
	r := NewRunner("id", "test", exe, logger.NewDiscard())

	rec := &sinkRecorder{}
	if err := r.Start("server:443", "key", rec.sink); err != nil {
		t.Fatalf("start: %v", err)
	}

	waitFor(t, 3*time.Second, func() bool { return !r.IsRunning() })
	waitFor(t, time.Second, func() bool { return rec.count() >= 2 })

	lines := rec.snapshot()
	if lines[0] != "one" {
		t.Fatalf("expected stdout line first, got %q", lines[0])
	}
	found := false
	for _, l := range lines {
		if l == "two" {
			found = true
		}
	}
	if !found {
		t.Fatalf("stderr line missing from sink: %v", lines)
	}

	history := r.History()
	if len(history) < 2 {
		t.Fatalf("expected history entries, got %d", len(history))
	}
}

func TestRunnerRejectsDoubleStart(t *testing.T) {
	exe := writeFakeCore(t, "sleep 10\n")
	r := NewRunner("id", "test", exe, logger.NewDiscard())
	defer r.Stop()

	if err := r.Start("server:443", "key", nil); err != nil {
		t.Fatalf("first start: %v", err)
	}
	if err := r.Start("server:443", "key", nil); err != ErrAlreadyRunning {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
}

func TestRunnerStopSilencesSink(t *testing.T) {
	exe := writeFakeCore(t, "while true; do echo tick; sleep 0.05; done\n")
	r := NewRunner("id", "test", exe, logger.NewDiscard())

	rec := &sinkRecorder{}
	if err := r.Start("server:443", "key", rec.sink); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitFor(t, 3*time.Second, func() bool { return rec.count() > 0 })

	if err := r.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if r.IsRunning() {
		t.Fatalf("runner still marked running after stop")
	}

	after := rec.count()
	time.Sleep(300 * time.Millisecond)
	if rec.count() != after {
		t.Fatalf("sink received %d lines after Stop returned", rec.count()-after)
	}

	if err := r.Stop(); err != ErrNotRunning {
		t.Fatalf("expected ErrNotRunning on second stop, got %v", err)
	}
}

func TestRunnerStopWaitsForInFlightDelivery(t *testing.T) {
	exe := writeFakeCore(t, "echo tick\nwhile true; do sleep 0.1; done\n")
	r := NewRunner("id", "test", exe, logger.NewDiscard())

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	sink := func(line string) {
		once.Do(func() {
			close(entered)
			<-release
		})
	}

	if err := r.Start("server:443", "key", sink); err != nil {
		t.Fatalf("start: %v", err)
	}

	select {
	case <-entered:
	case <-time.After(3 * time.Second):
		t.Fatalf("sink never invoked")
	}

	stopDone := make(chan struct{})
	go func() {
		r.Stop()
		close(stopDone)
	}()

	// The first delivery is still blocked inside the sink; Stop must not
	// return past it.
	select {
	case <-stopDone:
		t.Fatalf("Stop returned while a sink delivery was in flight")
	case <-time.After(200 * time.Millisecond):
	}

	close(release)

	select {
	case <-stopDone:
	case <-time.After(8 * time.Second):
		t.Fatalf("Stop did not return after the delivery finished")
	}
	if r.IsRunning() {
		t.Fatalf("runner still marked running after stop")
	}
}

func TestRunnerMissingExecutable(t *testing.T) {
	r := NewRunner("id", "test", filepath.Join(t.TempDir(), "sunny"), logger.NewDiscard())

	err := r.Start("server:443", "key", nil)
	if err == nil {
		t.Fatalf("expected error for missing executable")
	}
	var missing *MissingExecutableError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingExecutableError, got %T: %v", err, err)
	}
	if missing.Path == "" {
		t.Fatalf("error should carry the expected path")
	}
}

func TestRunnerHistoryBounded(t *testing.T) {
	r := NewRunner("id", "test", "unused", logger.NewDiscard())
	for i := 0; i < HistoryLimit+50; i++ {
		r.Append("line")
	}
	if got := len(r.History()); got != HistoryLimit {
		t.Fatalf("expected history capped at %d, got %d", HistoryLimit, got)
	}
}
