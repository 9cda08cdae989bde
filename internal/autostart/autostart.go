// Package autostart toggles launching the manager at login.
package autostart

import "errors"

const appName = "SunnyTunnelManager"

// ErrUnsupported is returned on platforms without an implemented login-item
// mechanism.
var ErrUnsupported = errors.New("autostart is not supported on this platform")
