package singleinstance

import (
	"errors"
	"net"

	"github.com/faqwang/Ngork.cc-third-party-GUI/internal/logger"
)

// A loopback port doubles as a cross-platform instance mutex: whoever holds
// the bind is the running instance. A second port carries "raise yourself"
// notifications from later launches.
const (
	DefaultLockAddr  = "127.0.0.1:59876"
	DefaultRaiseAddr = "127.0.0.1:59877"
)

var ErrAlreadyRunning = errors.New("another instance is already running")

// Lock holds the instance mutex for the lifetime of the process.
type Lock struct {
	ln net.Listener
}

// Acquire takes the instance lock. ErrAlreadyRunning means some other
// process holds it.
func Acquire(addr string) (*Lock, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, ErrAlreadyRunning
	}
	return &Lock{ln: ln}, nil
}

func (l *Lock) Release() {
	if l.ln != nil {
		l.ln.Close()
		l.ln = nil
	}
}

// Shutdown satisfies the shutdown manager.
func (l *Lock) Shutdown() {
	l.Release()
}

// NotifyRunning pings the running instance so it raises its window. Returns
// false when nobody is listening.
func NotifyRunning(addr string) bool {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// RaiseListener accepts notifications from later launches. Each accepted
// connection triggers the callback; the payload is irrelevant.
type RaiseListener struct {
	ln  net.Listener
	log logger.Logger
}

func ListenRaise(addr string, onRaise func(), log logger.Logger) (*RaiseListener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	r := &RaiseListener{ln: ln, log: log}
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
			log.Debug("instance", "raise request received", nil)
			onRaise()
		}
	}()
	return r, nil
}

func (r *RaiseListener) Close() {
	if r.ln != nil {
		r.ln.Close()
		r.ln = nil
	}
}

// Shutdown satisfies the shutdown manager.
func (r *RaiseListener) Shutdown() {
	r.Close()
}
