package gui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
)

// setupTray installs a system tray menu on desktop drivers. Mobile and test
// drivers silently skip it.
func (m *Manager) setupTray() {
	desk, ok := m.app.(desktop.App)
	if !ok {
		return
	}

	menu := fyne.NewMenu(windowTitle,
		fyne.NewMenuItem("Show Window", m.RaiseWindow),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Quit", m.confirmQuit),
	)
	desk.SetSystemTrayMenu(menu)
}
