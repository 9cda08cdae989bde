package gui

import (
	"errors"
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"

	"github.com/faqwang/Ngork.cc-third-party-GUI/internal/config"
	"github.com/faqwang/Ngork.cc-third-party-GUI/internal/process"
)

func (m *Manager) onSelect(index int) {
	m.setSelected(index)
	m.selection.Save(index)

	t, ok := m.store.Get(index)
	if !ok {
		return
	}
	if runner, found := m.supervisor.Lookup(t.ID); found {
		m.logPane.setHistory(runner.History())
	} else {
		m.logPane.clear()
	}
	m.refreshControls()
}

func (m *Manager) onUnselect() {
	m.setSelected(noSelection)
	m.logPane.setHistory(m.systemLog)
	m.refreshControls()
}

func (m *Manager) startSelected() {
	t, ok := m.selectedTunnel()
	if !ok {
		return
	}
	m.startTunnel(m.selectedIndex(), t)
}

// startTunnel launches the child for one tunnel. The output sink hops onto
// the UI thread and only touches the log pane while that tunnel is still the
// selected one.
func (m *Manager) startTunnel(index int, t config.Tunnel) {
	runner := m.supervisor.Runner(t.ID, t.Name)
	if runner.IsRunning() {
		dialog.ShowInformation("Already Running",
			fmt.Sprintf("Tunnel %q is already running.", t.Name), m.window)
		return
	}

	id := t.ID
	sink := func(line string) {
		fyne.Do(func() {
			if cur, ok := m.selectedTunnel(); ok && cur.ID == id {
				m.logPane.append(line)
			}
		})
	}

	runner.Append(fmt.Sprintf("starting tunnel %q (server %s)", t.Name, t.Server))
	err := runner.Start(t.Server, t.Key, sink)
	if err != nil {
		m.log.Error("gui", err, map[string]interface{}{
			"tunnel": t.Name,
		})
		var missing *process.MissingExecutableError
		if errors.As(err, &missing) {
			m.offerDownload(missing.Path)
			return
		}
		if errors.Is(err, process.ErrAlreadyRunning) {
			dialog.ShowInformation("Already Running",
				fmt.Sprintf("Tunnel %q is already running.", t.Name), m.window)
			return
		}
		dialog.ShowError(fmt.Errorf("start tunnel %q: %w", t.Name, err), m.window)
		return
	}

	m.log.Info("gui", "tunnel started", map[string]interface{}{
		"tunnel": t.Name,
		"pid":    runner.Pid(),
	})
	if index == m.selectedIndex() {
		m.logPane.setHistory(runner.History())
	}
	m.refreshControls()
	m.tunnelList.Refresh()
}

func (m *Manager) stopSelected() {
	t, ok := m.selectedTunnel()
	if !ok {
		return
	}
	runner, found := m.supervisor.Lookup(t.ID)
	if !found {
		return
	}

	if err := runner.Stop(); err != nil && !errors.Is(err, process.ErrNotRunning) {
		dialog.ShowError(fmt.Errorf("stop tunnel %q: %w", t.Name, err), m.window)
		return
	}

	runner.Append("tunnel stopped")
	m.logPane.setHistory(runner.History())
	m.refreshControls()
	m.tunnelList.Refresh()
}

func (m *Manager) addTunnel() {
	m.showTunnelForm("Add Tunnel", config.Tunnel{}, func(t config.Tunnel) error {
		if _, err := m.store.Add(t); err != nil {
			return err
		}
		m.logSystem(fmt.Sprintf("added tunnel %q", t.Name))
		m.tunnelList.Refresh()
		m.tunnelList.Select(m.store.Len() - 1)
		return nil
	})
}

func (m *Manager) editTunnel() {
	t, ok := m.selectedTunnel()
	if !ok {
		dialog.ShowInformation("No Selection", "Select a tunnel to edit first.", m.window)
		return
	}

	index := m.selectedIndex()
	m.showTunnelForm("Edit Tunnel", t, func(edited config.Tunnel) error {
		if err := m.store.Update(index, edited); err != nil {
			return err
		}
		m.tunnelList.Refresh()
		m.refreshControls()
		return nil
	})
}

func (m *Manager) deleteTunnel() {
	t, ok := m.selectedTunnel()
	if !ok {
		dialog.ShowInformation("No Selection", "Select a tunnel to delete first.", m.window)
		return
	}

	index := m.selectedIndex()
	dialog.ShowConfirm("Delete Tunnel",
		fmt.Sprintf("Delete tunnel %q?", t.Name),
		func(confirmed bool) {
			if !confirmed {
				return
			}
			m.supervisor.Forget(t.ID)
			if err := m.store.Delete(index); err != nil {
				dialog.ShowError(err, m.window)
				return
			}
			m.tunnelList.UnselectAll()
			m.tunnelList.Refresh()
			m.logSystem(fmt.Sprintf("deleted tunnel %q", t.Name))
		}, m.window)
}

func (m *Manager) clearLog() {
	if t, ok := m.selectedTunnel(); ok {
		if runner, found := m.supervisor.Lookup(t.ID); found {
			runner.ClearHistory()
		}
	} else {
		m.systemLog = nil
	}
	m.logPane.clear()
}

// onCloseRequested honors the configured close behavior, asking the user the
// first time and remembering the answer.
func (m *Manager) onCloseRequested() {
	switch m.settings.CloseBehavior() {
	case config.CloseMinimize:
		m.window.Hide()
	case config.CloseExit:
		m.confirmQuit()
	default:
		m.askCloseBehavior()
	}
}

func (m *Manager) askCloseBehavior() {
	dialog.ShowConfirm("Close Window",
		"Minimize to tray instead of exiting?\n\nYour choice is remembered and can be changed in Settings.",
		func(minimize bool) {
			behavior := config.CloseExit
			if minimize {
				behavior = config.CloseMinimize
			}
			if err := m.settings.SetCloseBehavior(behavior); err != nil {
				m.log.Error("gui", err, nil)
			}
			if minimize {
				m.window.Hide()
			} else {
				m.confirmQuit()
			}
		}, m.window)
}

// confirmQuit warns about running tunnels before exiting.
func (m *Manager) confirmQuit() {
	running := m.runningNames()
	if len(running) == 0 {
		m.quit()
		return
	}

	msg := "These tunnels are still running and will be stopped:\n"
	for _, name := range running {
		msg += "\n  " + name
	}
	dialog.ShowConfirm("Quit", msg+"\n\nQuit anyway?", func(confirmed bool) {
		if confirmed {
			m.quit()
		}
	}, m.window)
}

func (m *Manager) runningNames() []string {
	var names []string
	for _, id := range m.supervisor.RunningIDs() {
		name := id
		if t, ok := m.store.ByID(id); ok {
			name = t.Name
		}
		names = append(names, name)
	}
	return names
}
