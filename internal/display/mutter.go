package display

import (
	"fmt"
	"sync"

	"github.com/bryanchriswhite/ColorProbe/internal/logger"
	"github.com/godbus/dbus/v5"
)

// Mutter D-Bus constants
const (
	mutterPath      = "/org/gnome/Mutter/DisplayConfig"
	mutterInterface = "org.gnome.Mutter.DisplayConfig"
	monitorsChanged = "MonitorsChanged"
)

// MutterWatcher reports GNOME monitor reconfiguration, which XWayland's
// RandR view does not always reflect promptly
type MutterWatcher struct {
	conn *dbus.Conn
}

// NewMutterWatcher connects to the session bus
func NewMutterWatcher() (*MutterWatcher, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	return &MutterWatcher{conn: conn}, nil
}

// Close closes the bus connection
func (w *MutterWatcher) Close() error {
	return w.conn.Close()
}

// Watch subscribes to DisplayConfig.MonitorsChanged
func (w *MutterWatcher) Watch(onChange func()) (func(), error) {
	log := logger.WithComponent("mutter-watcher")

	matchOpts := []dbus.MatchOption{
		dbus.WithMatchObjectPath(mutterPath),
		dbus.WithMatchInterface(mutterInterface),
		dbus.WithMatchMember(monitorsChanged),
	}
	if err := w.conn.AddMatchSignal(matchOpts...); err != nil {
		return nil, fmt.Errorf("failed to add match for %s.%s: %w", mutterInterface, monitorsChanged, err)
	}
	log.Debug().Msg("Subscribed to DisplayConfig.MonitorsChanged signal")

	signalChan := make(chan *dbus.Signal, 10)
	w.conn.Signal(signalChan)

	stopChan := make(chan struct{})
	go func() {
		for {
			select {
			case <-stopChan:
				return
			case sig := <-signalChan:
				if isMonitorsChanged(sig) {
					log.Debug().Msg("Monitors changed, refreshing display list")
					onChange()
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stopChan)
			w.conn.RemoveSignal(signalChan)
			if err := w.conn.RemoveMatchSignal(matchOpts...); err != nil {
				log.Debug().Err(err).Msg("Failed to remove MonitorsChanged match")
			}
		})
	}, nil
}

func isMonitorsChanged(sig *dbus.Signal) bool {
	if sig == nil {
		return false
	}
	return sig.Name == mutterInterface+"."+monitorsChanged && sig.Path == mutterPath
}
