package paths

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
)

// AppDirs describes the on-disk layout of the application:
//
//	<base>/core/     the tunneling executable
//	<base>/config/   tunnels.json, settings.json, .last_selection
type AppDirs struct {
	Base   string
	Core   string
	Config string
}

// At builds the layout rooted at base without touching the filesystem.
func At(base string) AppDirs {
	return AppDirs{
		Base:   base,
		Core:   filepath.Join(base, "core"),
		Config: filepath.Join(base, "config"),
	}
}

// Discover roots the layout next to the running executable. SUNNY_BASE_DIR
// overrides the location, which tests and packagers rely on.
func Discover() (AppDirs, error) {
	if base := os.Getenv("SUNNY_BASE_DIR"); base != "" {
		return At(base), nil
	}

	exe, err := os.Executable()
	if err != nil {
		return AppDirs{}, fmt.Errorf("locate executable: %w", err)
	}
	return At(filepath.Dir(exe)), nil
}

// Ensure creates the core and config directories and moves files from the old
// flat layout into them. Earlier releases kept everything next to the binary.
func (d AppDirs) Ensure() error {
	if err := os.MkdirAll(d.Core, 0o755); err != nil {
		return fmt.Errorf("create core dir: %w", err)
	}
	if err := os.MkdirAll(d.Config, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	d.migrateLegacy()
	return nil
}

func (d AppDirs) TunnelsFile() string       { return filepath.Join(d.Config, "tunnels.json") }
func (d AppDirs) SettingsFile() string      { return filepath.Join(d.Config, "settings.json") }
func (d AppDirs) LastSelectionFile() string { return filepath.Join(d.Config, ".last_selection") }

// CoreExecutable is the expected path of the tunneling binary.
func (d AppDirs) CoreExecutable() string {
	return filepath.Join(d.Core, ExecutableName())
}

// ExecutableName is the platform name of the tunneling binary.
func ExecutableName() string {
	if runtime.GOOS == "windows" {
		return "sunny.exe"
	}
	return "sunny"
}

func (d AppDirs) migrateLegacy() {
	pairs := [][2]string{
		{filepath.Join(d.Base, "tunnels.json"), d.TunnelsFile()},
		{filepath.Join(d.Base, "settings.json"), d.SettingsFile()},
		{filepath.Join(d.Base, ".last_selection"), d.LastSelectionFile()},
		{filepath.Join(d.Base, ExecutableName()), d.CoreExecutable()},
	}
	for _, pair := range pairs {
		moveIfMissing(pair[0], pair[1])
	}
}

// moveIfMissing moves old into new unless new already exists. Rename can fail
// across filesystems, in which case a copy is attempted.
func moveIfMissing(old, new string) {
	if _, err := os.Stat(new); err == nil {
		return
	}
	if _, err := os.Stat(old); err != nil {
		return
	}
	if err := os.Rename(old, new); err == nil {
		return
	}
	copyFile(old, new)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
