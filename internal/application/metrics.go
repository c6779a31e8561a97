package application

import "expvar"

// sessionStats is published on /debug/vars.
var sessionStats = expvar.NewMap("sessions")

const (
	statRegistrations   = "registrations"
	statLogins          = "logins"
	statLoginFailures   = "login_failures"
	statRotations       = "rotations"
	statReuseDetections = "reuse_detections"
	statLogouts         = "logouts"
)
