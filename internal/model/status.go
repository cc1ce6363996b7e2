package model

import "time"

// ConnectivityStatus is the current reachability signal.
type ConnectivityStatus struct {
	Online bool      `json:"online"`
	Since  time.Time `json:"since"`
	Source string    `json:"source,omitempty"`
}

// InstallOutcome is the user's answer to the install prompt.
type InstallOutcome string

const (
	InstallAccepted  InstallOutcome = "accepted"
	InstallDismissed InstallOutcome = "dismissed"
)

// Valid reports whether o is a known outcome.
func (o InstallOutcome) Valid() bool {
	return o == InstallAccepted || o == InstallDismissed
}

// InstallStatus is what UI collaborators see of the install prompt.
type InstallStatus struct {
	CanInstall  bool `json:"can_install"`
	IsInstalled bool `json:"is_installed"`
}
