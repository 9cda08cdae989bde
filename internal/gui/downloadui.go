package gui

import (
	"context"
	"errors"
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
)

// offerDownload is shown when a start attempt finds no core binary on disk.
func (m *Manager) offerDownload(path string) {
	dialog.ShowConfirm("Core Not Installed",
		fmt.Sprintf("The tunneling core was not found at:\n%s\n\nDownload it now?", path),
		func(confirmed bool) {
			if confirmed {
				m.runDownload(nil)
			}
		}, m.window)
}

// runDownload fetches and installs the core archive with a cancellable
// progress dialog. done, if non-nil, receives the result once the dialog has
// been dismissed.
func (m *Manager) runDownload(done func(error)) {
	ctx, cancel := context.WithCancel(context.Background())

	bar := widget.NewProgressBar()
	status := widget.NewLabel("Connecting...")
	content := container.NewVBox(status, bar)

	dlg := dialog.NewCustom("Downloading Core", "Cancel", content, m.window)
	dlg.SetOnClosed(cancel)
	dlg.Show()

	progress := func(written, total int64) {
		fyne.Do(func() {
			if total > 0 {
				bar.Max = float64(total)
				bar.SetValue(float64(written))
				status.SetText(fmt.Sprintf("%.1f / %.1f MB",
					float64(written)/(1024*1024), float64(total)/(1024*1024)))
			} else {
				status.SetText(fmt.Sprintf("%.1f MB", float64(written)/(1024*1024)))
			}
		})
	}

	go func() {
		err := m.fetcher.Install(ctx, progress)
		cancel()

		fyne.Do(func() {
			dlg.Hide()
			switch {
			case err == nil:
				dialog.ShowInformation("Download Complete",
					"The tunneling core is installed and ready.", m.window)
			case errors.Is(err, context.Canceled):
				m.log.Info("gui", "core download cancelled", nil)
			default:
				dialog.ShowError(fmt.Errorf("download core: %w", err), m.window)
			}
			if done != nil {
				done(err)
			}
		})
	}()
}
