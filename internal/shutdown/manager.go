package shutdown

import (
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/faqwang/Ngork.cc-third-party-GUI/internal/logger"
)

// Shutdownable is anything that must be torn down before the process exits:
// the process supervisor, the instance lock, the raise listener.
type Shutdownable interface {
	Shutdown()
}

type component struct {
	name string
	impl Shutdownable
}

// Manager runs registered components' Shutdown in reverse registration order,
// once, with a per-component timeout so a wedged child process cannot hang
// the application exit.
type Manager struct {
	log logger.Logger

	mu         sync.Mutex
	components []component
	done       chan struct{}
}

const componentTimeout = 10 * time.Second

func NewManager(log logger.Logger) *Manager {
	return &Manager{
		log:  log,
		done: make(chan struct{}),
	}
}

func (m *Manager) Register(name string, impl Shutdownable) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.components = append(m.components, component{name: name, impl: impl})
}

// Listen triggers shutdown on SIGINT/SIGTERM, then invokes exit. The GUI
// event loop does not return on its own when the process is signalled.
func (m *Manager) Listen(exit func()) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		m.log.Info("shutdown", "signal received", map[string]interface{}{
			"signal": sig.String(),
		})
		m.Shutdown()
		if exit != nil {
			exit()
		}
	}()
}

func (m *Manager) Shutdown() {
	m.mu.Lock()
	select {
	case <-m.done:
		m.mu.Unlock()
		return
	default:
		close(m.done)
	}
	components := append([]component(nil), m.components...)
	m.mu.Unlock()

	for i := len(components) - 1; i >= 0; i-- {
		c := components[i]

		finished := make(chan struct{})
		go func() {
			defer close(finished)
			c.impl.Shutdown()
		}()

		select {
		case <-finished:
			m.log.Debug("shutdown", "component stopped", map[string]interface{}{
				"component": c.name,
			})
		case <-time.After(componentTimeout):
			m.log.Warning("shutdown", "component timed out", map[string]interface{}{
				"component": c.name,
			})
		}
	}
}

// Done is closed once shutdown has started.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}
