package gui

import (
	"strings"

	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/faqwang/Ngork.cc-third-party-GUI/internal/config"
)

// showTunnelForm opens the add/edit dialog pre-filled from initial. The save
// callback runs only when every required field is non-empty.
func (m *Manager) showTunnelForm(title string, initial config.Tunnel, save func(config.Tunnel) error) {
	nameEntry := widget.NewEntry()
	nameEntry.SetPlaceHolder("my tunnel")
	nameEntry.SetText(initial.Name)

	serverEntry := widget.NewEntry()
	serverEntry.SetPlaceHolder("hk.example.net:4443")
	serverEntry.SetText(initial.Server)

	keyEntry := widget.NewPasswordEntry()
	keyEntry.SetText(initial.Key)

	autoCheck := widget.NewCheck("Start when the application launches", nil)
	autoCheck.SetChecked(initial.AutoStart)

	items := []*widget.FormItem{
		widget.NewFormItem("Name", nameEntry),
		widget.NewFormItem("Server", serverEntry),
		widget.NewFormItem("Key", keyEntry),
		widget.NewFormItem("Auto-start", autoCheck),
	}

	dialog.ShowForm(title, "Save", "Cancel", items, func(confirmed bool) {
		if !confirmed {
			return
		}

		t := config.Tunnel{
			ID:        initial.ID,
			Name:      strings.TrimSpace(nameEntry.Text),
			Server:    strings.TrimSpace(serverEntry.Text),
			Key:       strings.TrimSpace(keyEntry.Text),
			AutoStart: autoCheck.Checked,
		}
		if t.Name == "" || t.Server == "" || t.Key == "" {
			dialog.ShowInformation("Incomplete",
				"Name, server and key are all required.", m.window)
			return
		}

		if err := save(t); err != nil {
			dialog.ShowError(err, m.window)
		}
	}, m.window)
}
