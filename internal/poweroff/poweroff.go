// Package poweroff takes a logind "sleep" inhibit lock, so a headless
// session doesn't suspend out from under the VNC server. The lock is held
// until Close, whether or not a VNC client is attached.
package poweroff

import (
	"fmt"
	"os"

	"github.com/godbus/dbus/v5"
)

const (
	login1Dest    = "org.freedesktop.login1"
	login1Path    = "/org/freedesktop/login1"
	login1Manager = "org.freedesktop.login1.Manager"
)

// Inhibitor holds one logind inhibit lock, released by Close.
type Inhibitor struct {
	conn *dbus.Conn
	file *os.File
}

// Inhibit takes a "sleep" inhibit lock over the system bus, matching
// `systemd-inhibit --what=sleep`'s semantics, so the machine doesn't
// suspend while the lock is held.
func Inhibit(who, why string) (*Inhibitor, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("poweroff: connect system bus: %w", err)
	}

	obj := conn.Object(login1Dest, dbus.ObjectPath(login1Path))
	var fd dbus.UnixFD
	call := obj.Call(login1Manager+".Inhibit", 0, "sleep", who, why, "block")
	if call.Err != nil {
		conn.Close()
		return nil, fmt.Errorf("poweroff: Inhibit: %w", call.Err)
	}
	if err := call.Store(&fd); err != nil {
		conn.Close()
		return nil, fmt.Errorf("poweroff: decode inhibit fd: %w", err)
	}

	return &Inhibitor{conn: conn, file: os.NewFile(uintptr(fd), "logind-inhibit-lock")}, nil
}

// Close releases the inhibit lock by closing its file descriptor, the
// only way logind's Inhibit API supports releasing one early.
func (i *Inhibitor) Close() error {
	var err error
	if i.file != nil {
		err = i.file.Close()
	}
	if i.conn != nil {
		if cerr := i.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
