package gui

import (
	"fmt"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"github.com/faqwang/Ngork.cc-third-party-GUI/internal/config"
	"github.com/faqwang/Ngork.cc-third-party-GUI/internal/download"
	"github.com/faqwang/Ngork.cc-third-party-GUI/internal/logger"
	"github.com/faqwang/Ngork.cc-third-party-GUI/internal/paths"
	"github.com/faqwang/Ngork.cc-third-party-GUI/internal/process"
)

const (
	windowTitle  = "Sunny Tunnel Manager"
	windowWidth  = 900
	windowHeight = 600

	noSelection = -1
)

// Manager owns the main window: the tunnel list on the left, control and log
// panes on the right, plus menus and the optional tray icon. UI mutations
// triggered from goroutines go through fyne.Do.
type Manager struct {
	app    fyne.App
	window fyne.Window
	log    logger.Logger

	store      *config.Store
	settings   *config.Settings
	selection  *config.Selection
	supervisor *process.Supervisor
	fetcher    *download.Fetcher
	dirs       paths.AppDirs

	// OnExit runs once before the application quits, wired by the caller to
	// the shutdown manager.
	OnExit func()

	tunnelList   *widget.List
	currentLabel *widget.Label
	statusLabel  *widget.Label
	statsLabel   *widget.Label
	startButton  *widget.Button
	stopButton   *widget.Button
	logPane      *logPanel

	// selected is written on the Fyne event thread and read by updateLoop,
	// so it gets its own lock.
	selMu    sync.Mutex
	selected int

	systemLog []process.Entry

	stop      chan struct{}
	stopOnce  sync.Once
	startOnce sync.Once
}

func NewWithApp(
	app fyne.App,
	dirs paths.AppDirs,
	store *config.Store,
	settings *config.Settings,
	selection *config.Selection,
	supervisor *process.Supervisor,
	fetcher *download.Fetcher,
	log logger.Logger,
) *Manager {
	m := &Manager{
		app:        app,
		log:        log,
		dirs:       dirs,
		store:      store,
		settings:   settings,
		selection:  selection,
		supervisor: supervisor,
		fetcher:    fetcher,
		selected:   noSelection,
		stop:       make(chan struct{}),
	}

	m.buildUI()
	m.setupMenus()
	m.setupTray()

	return m
}

func (m *Manager) buildUI() {
	m.window = m.app.NewWindow(windowTitle)
	m.window.Resize(fyne.NewSize(windowWidth, windowHeight))

	m.tunnelList = widget.NewList(
		func() int { return m.store.Len() },
		func() fyne.CanvasObject { return widget.NewLabel("template") },
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			t, ok := m.store.Get(id)
			if !ok {
				return
			}
			obj.(*widget.Label).SetText(m.listLineFor(t))
		},
	)
	m.tunnelList.OnSelected = func(id widget.ListItemID) { m.onSelect(int(id)) }
	m.tunnelList.OnUnselected = func(widget.ListItemID) { m.onUnselect() }

	listButtons := container.NewHBox(
		widget.NewButton("Add", m.addTunnel),
		widget.NewButton("Edit", m.editTunnel),
		widget.NewButton("Delete", m.deleteTunnel),
	)
	leftPanel := container.NewBorder(
		widget.NewLabelWithStyle("Tunnels", fyne.TextAlignCenter, fyne.TextStyle{Bold: true}),
		listButtons,
		nil, nil,
		m.tunnelList,
	)

	m.currentLabel = widget.NewLabel("none selected")
	m.statusLabel = widget.NewLabel("not running")
	m.statsLabel = widget.NewLabel("")

	m.startButton = widget.NewButton("Start Tunnel", m.startSelected)
	m.stopButton = widget.NewButton("Stop Tunnel", m.stopSelected)
	m.startButton.Disable()
	m.stopButton.Disable()

	statusRow := container.NewHBox(
		widget.NewLabel("Tunnel:"), m.currentLabel,
		widget.NewSeparator(),
		widget.NewLabel("Status:"), m.statusLabel,
		widget.NewSeparator(),
		m.statsLabel,
	)
	controlRow := container.NewHBox(m.startButton, m.stopButton)

	m.logPane = newLogPanel()
	logArea := container.NewBorder(
		widget.NewLabel("Log:"),
		container.NewHBox(widget.NewButton("Clear Log", m.clearLog)),
		nil, nil,
		m.logPane.container(),
	)

	rightPanel := container.NewBorder(
		container.NewVBox(statusRow, controlRow, widget.NewSeparator()),
		nil, nil, nil,
		logArea,
	)

	content := container.NewHSplit(leftPanel, rightPanel)
	content.SetOffset(0.33)
	m.window.SetContent(content)

	m.window.SetCloseIntercept(m.onCloseRequested)
}

// Startup restores the remembered selection and launches every tunnel marked
// auto-start. Called once after the window exists.
func (m *Manager) Startup() {
	if index, ok := m.selection.Load(m.store.Len()); ok {
		m.tunnelList.Select(index)
	}
	m.autoStartTunnels()
}

func (m *Manager) autoStartTunnels() {
	for i, t := range m.store.All() {
		if !t.AutoStart {
			continue
		}
		m.logSystem(fmt.Sprintf("auto-starting tunnel %q", t.Name))
		m.startTunnel(i, t)
	}
	m.tunnelList.Refresh()
}

// logSystem records operator feedback shown in the log pane while no tunnel
// is selected.
func (m *Manager) logSystem(line string) {
	m.systemLog = append(m.systemLog, process.Entry{When: time.Now(), Line: line})
	if len(m.systemLog) > process.HistoryLimit {
		m.systemLog = m.systemLog[len(m.systemLog)-process.HistoryLimit:]
	}
	if m.selectedIndex() == noSelection {
		m.logPane.setHistory(m.systemLog)
	}
}

func (m *Manager) startBackgroundTasks() {
	m.startOnce.Do(func() {
		go m.updateLoop()
	})
}

// updateLoop refreshes running markers and child process stats once a second.
// A child exiting on its own shows up here without extra plumbing.
func (m *Manager) updateLoop() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			stats := m.sampleSelected()
			fyne.Do(func() {
				m.statsLabel.SetText(stats)
				m.refreshControls()
				m.tunnelList.Refresh()
			})
		}
	}
}

// sampleSelected reads CPU/RSS for the selected tunnel's child, off the UI
// thread.
func (m *Manager) sampleSelected() string {
	t, ok := m.selectedTunnel()
	if !ok {
		return ""
	}
	runner, ok := m.supervisor.Lookup(t.ID)
	if !ok || !runner.IsRunning() {
		return ""
	}
	sample, err := process.SampleProcess(runner.Pid())
	if err != nil {
		return ""
	}
	return sample.String()
}

func (m *Manager) listLineFor(t config.Tunnel) string {
	marker := "○"
	if m.supervisor.IsRunning(t.ID) {
		marker = "●"
	}
	line := fmt.Sprintf("%s %s", marker, t.Name)
	if t.AutoStart {
		line += " [auto]"
	}
	return line
}

func (m *Manager) setSelected(index int) {
	m.selMu.Lock()
	m.selected = index
	m.selMu.Unlock()
}

func (m *Manager) selectedIndex() int {
	m.selMu.Lock()
	defer m.selMu.Unlock()
	return m.selected
}

func (m *Manager) selectedTunnel() (config.Tunnel, bool) {
	index := m.selectedIndex()
	if index == noSelection {
		return config.Tunnel{}, false
	}
	return m.store.Get(index)
}

// refreshControls syncs labels and button enablement with the selection and
// its running state.
func (m *Manager) refreshControls() {
	t, ok := m.selectedTunnel()
	if !ok {
		m.currentLabel.SetText("none selected")
		m.statusLabel.SetText("not running")
		m.statsLabel.SetText("")
		m.startButton.Disable()
		m.stopButton.Disable()
		return
	}

	m.currentLabel.SetText(t.Name)
	if m.supervisor.IsRunning(t.ID) {
		m.statusLabel.SetText("running")
		m.startButton.Disable()
		m.stopButton.Enable()
	} else {
		m.statusLabel.SetText("not running")
		m.startButton.Enable()
		m.stopButton.Disable()
	}
}

// RaiseWindow shows and focuses the window. Safe to call from any goroutine;
// the single-instance listener uses it.
func (m *Manager) RaiseWindow() {
	fyne.Do(func() {
		m.window.Show()
		m.window.RequestFocus()
	})
}

func (m *Manager) Window() fyne.Window {
	return m.window
}

func (m *Manager) Run() {
	m.startBackgroundTasks()
	m.window.ShowAndRun()
}

// Stop halts the background refresh loop.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stop)
	})
}

func (m *Manager) quit() {
	m.Stop()
	if m.OnExit != nil {
		m.OnExit()
	}
	m.app.Quit()
}
