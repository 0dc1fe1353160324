package app

import "github.com/coreos/go-systemd/v22/daemon"

// sdNotify reports state to systemd. It is a no-op (false, nil) when the
// process was not started by a Type=notify unit.
func sdNotify(state string) (bool, error) {
	return daemon.SdNotify(false, state)
}
