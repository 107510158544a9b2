package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RegistrationsTotal counts accounts created.
	RegistrationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auth_registrations_total",
		Help: "Total number of accounts registered",
	})

	// LoginsTotal counts login attempts by result.
	LoginsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_logins_total",
		Help: "Total number of login attempts",
	}, []string{"result"})

	// RefreshTotal counts refresh attempts by result.
	RefreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_token_refresh_total",
		Help: "Total number of refresh-token rotations",
	}, []string{"result"})

	// ReuseDetectedTotal counts sessions terminated by refresh-token reuse.
	ReuseDetectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auth_refresh_reuse_detected_total",
		Help: "Total number of refresh-token reuse detections",
	})

	// VerificationEmailsTotal counts verification mail dispatches by result.
	VerificationEmailsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_verification_emails_total",
		Help: "Total number of verification emails dispatched",
	}, []string{"result"})
)
