package display

import (
	"testing"

	"github.com/godbus/dbus/v5"
)

func TestIsMonitorsChanged(t *testing.T) {
	tests := []struct {
		name string
		sig  *dbus.Signal
		want bool
	}{
		{"nil", nil, false},
		{"monitors changed", &dbus.Signal{Path: mutterPath, Name: mutterInterface + ".MonitorsChanged"}, true},
		{"other member", &dbus.Signal{Path: mutterPath, Name: mutterInterface + ".PowerSaveModeChanged"}, false},
		{"other path", &dbus.Signal{Path: "/org/other", Name: mutterInterface + ".MonitorsChanged"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isMonitorsChanged(tt.sig); got != tt.want {
				t.Errorf("isMonitorsChanged() = %v, want %v", got, tt.want)
			}
		})
	}
}
