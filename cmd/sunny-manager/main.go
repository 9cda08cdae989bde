package main

import (
	"errors"
	"fmt"
	"os"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"github.com/joho/godotenv"

	"github.com/faqwang/Ngork.cc-third-party-GUI/internal/config"
	"github.com/faqwang/Ngork.cc-third-party-GUI/internal/download"
	"github.com/faqwang/Ngork.cc-third-party-GUI/internal/gui"
	"github.com/faqwang/Ngork.cc-third-party-GUI/internal/logger"
	"github.com/faqwang/Ngork.cc-third-party-GUI/internal/paths"
	"github.com/faqwang/Ngork.cc-third-party-GUI/internal/process"
	"github.com/faqwang/Ngork.cc-third-party-GUI/internal/shutdown"
	"github.com/faqwang/Ngork.cc-third-party-GUI/internal/singleinstance"
)

const (
	AppName    = "Sunny Tunnel Manager"
	AppID      = "cc.ngrok.sunny-tunnel-manager"
	AppVersion = "1.0.0"
)

// Application wires storage, process supervision and the GUI together and
// owns orderly shutdown.
type Application struct {
	fyneApp fyne.App
	log     logger.Logger

	dirs       paths.AppDirs
	store      *config.Store
	settings   *config.Settings
	supervisor *process.Supervisor
	guiManager *gui.Manager

	lock     *singleinstance.Lock
	raise    *singleinstance.RaiseListener
	shutdown *shutdown.Manager
}

func main() {
	// Optional .env next to the binary, mirrors LOG_LEVEL and SUNNY_BASE_DIR.
	_ = godotenv.Load()

	log := logger.NewConsoleLogger(logger.LevelFromEnv())

	application, err := newApplication(log)
	if err != nil {
		if errors.Is(err, singleinstance.ErrAlreadyRunning) {
			// Another instance owns the lock; ask it to come to the front.
			singleinstance.NotifyRunning(singleinstance.DefaultRaiseAddr)
			return
		}
		log.Error("main", err, nil)
		fmt.Fprintf(os.Stderr, "startup failed: %v\n", err)
		os.Exit(1)
	}

	application.Run()
}

func newApplication(log logger.Logger) (*Application, error) {
	lock, err := singleinstance.Acquire(singleinstance.DefaultLockAddr)
	if err != nil {
		return nil, err
	}

	dirs, err := paths.Discover()
	if err != nil {
		lock.Release()
		return nil, fmt.Errorf("locate application directory: %w", err)
	}
	if err := dirs.Ensure(); err != nil {
		lock.Release()
		return nil, fmt.Errorf("prepare application directories: %w", err)
	}

	log.Info("main", "starting application", map[string]interface{}{
		"version": AppVersion,
		"base":    dirs.Base,
	})

	store := config.NewStore(dirs.TunnelsFile(), log)
	if err := store.Load(); err != nil {
		lock.Release()
		return nil, fmt.Errorf("load tunnels: %w", err)
	}
	settings := config.NewSettings(dirs.SettingsFile(), log)
	if err := settings.Load(); err != nil {
		lock.Release()
		return nil, fmt.Errorf("load settings: %w", err)
	}
	selection := config.NewSelection(dirs.LastSelectionFile())

	supervisor := process.NewSupervisor(dirs.CoreExecutable, log)
	fetcher := download.NewFetcher(dirs, log)

	fyneApp := app.NewWithID(AppID)

	guiManager := gui.NewWithApp(fyneApp, dirs, store, settings, selection, supervisor, fetcher, log)

	raise, err := singleinstance.ListenRaise(singleinstance.DefaultRaiseAddr, guiManager.RaiseWindow, log)
	if err != nil {
		// Not fatal: a second launch just cannot raise this window.
		log.Warning("main", "raise listener unavailable", map[string]interface{}{
			"error": err.Error(),
		})
	}

	sd := shutdown.NewManager(log)
	sd.Register("supervisor", supervisor)
	if raise != nil {
		sd.Register("raise-listener", raise)
	}
	sd.Register("instance-lock", lock)

	application := &Application{
		fyneApp:    fyneApp,
		log:        log,
		dirs:       dirs,
		store:      store,
		settings:   settings,
		supervisor: supervisor,
		guiManager: guiManager,
		lock:       lock,
		raise:      raise,
		shutdown:   sd,
	}

	guiManager.OnExit = sd.Shutdown
	sd.Listen(func() {
		guiManager.Stop()
		fyne.Do(fyneApp.Quit)
	})

	return application, nil
}

func (a *Application) Run() {
	a.guiManager.Startup()
	a.guiManager.Run()

	// ShowAndRun returned, make sure children and listeners are gone even if
	// the window was closed through a path that skipped OnExit.
	a.shutdown.Shutdown()
	a.log.Info("main", "application stopped", nil)
}
