//go:build !windows && !linux

package autostart

func Enable(execPath string) error { return ErrUnsupported }

func Disable() error { return ErrUnsupported }

func Enabled() (bool, error) { return false, ErrUnsupported }
