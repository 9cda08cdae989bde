package gui

import (
	"errors"
	"fmt"
	"net/url"
	"os"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"

	"github.com/faqwang/Ngork.cc-third-party-GUI/internal/autostart"
	"github.com/faqwang/Ngork.cc-third-party-GUI/internal/download"
)

func (m *Manager) setupMenus() {
	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("Quit", m.confirmQuit),
	)

	settingsMenu := fyne.NewMenu("Settings",
		fyne.NewMenuItem("Run at Login", m.toggleRunAtLogin),
		fyne.NewMenuItem("Minimize to Tray", func() { m.window.Hide() }),
		fyne.NewMenuItem("Download Core", func() { m.runDownload(nil) }),
	)

	helpMenu := fyne.NewMenu("Help",
		fyne.NewMenuItem("Open Website", m.openWebsite),
		fyne.NewMenuItem("About", m.showAbout),
	)

	m.window.SetMainMenu(fyne.NewMainMenu(fileMenu, settingsMenu, helpMenu))
}

// toggleRunAtLogin flips the login autostart entry for the current user.
func (m *Manager) toggleRunAtLogin() {
	enabled, err := autostart.Enabled()
	if err != nil {
		m.showAutostartError(err)
		return
	}

	if enabled {
		err = autostart.Disable()
	} else {
		exe, exeErr := os.Executable()
		if exeErr != nil {
			dialog.ShowError(exeErr, m.window)
			return
		}
		err = autostart.Enable(exe)
	}
	if err != nil {
		m.showAutostartError(err)
		return
	}

	state := "enabled"
	if enabled {
		state = "disabled"
	}
	m.log.Info("gui", "run-at-login toggled", map[string]interface{}{
		"state": state,
	})
	dialog.ShowInformation("Run at Login",
		fmt.Sprintf("Run at login is now %s.", state), m.window)
}

func (m *Manager) showAutostartError(err error) {
	if errors.Is(err, autostart.ErrUnsupported) {
		dialog.ShowInformation("Run at Login",
			"Run at login is not supported on this platform.", m.window)
		return
	}
	dialog.ShowError(err, m.window)
}

func (m *Manager) openWebsite() {
	u, err := url.Parse(download.PageURL)
	if err != nil {
		return
	}
	if err := m.app.OpenURL(u); err != nil {
		m.log.Error("gui", err, map[string]interface{}{
			"url": download.PageURL,
		})
	}
}

func (m *Manager) showAbout() {
	dialog.ShowInformation("About",
		windowTitle+"\n\nA desktop front end for the Sunny tunneling core.\n"+
			"Manages tunnel definitions and supervises the core process.",
		m.window)
}
