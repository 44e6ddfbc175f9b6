package circuitbreaker

import "time"

// Config holds circuit breaker configuration.
type Config struct {
	// FailureThreshold is the number of consecutive failures that trips the
	// circuit from closed to open.
	FailureThreshold uint32

	// SuccessThreshold is the number of consecutive half-open successes
	// required to fully close the circuit again.
	SuccessThreshold uint32

	// RecoveryTimeout is how long an open circuit waits before permitting a
	// half-open probe. Evaluated lazily at call time, never by timer.
	RecoveryTimeout time.Duration
}

// normalize fills zero values with defaults so a partially specified config
// never produces a breaker that can't trip or recover.
func (c Config) normalize() Config {
	def := DefaultConfig()

	if c.FailureThreshold == 0 {
		c.FailureThreshold = def.FailureThreshold
	}

	if c.SuccessThreshold == 0 {
		c.SuccessThreshold = def.SuccessThreshold
	}

	if c.RecoveryTimeout <= 0 {
		c.RecoveryTimeout = def.RecoveryTimeout
	}

	return c
}

// DefaultConfig provides balanced settings for most services.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		RecoveryTimeout:  30 * time.Second,
	}
}

// APIConfig covers the general REST backend.
func APIConfig() Config {
	return Config{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		RecoveryTimeout:  30 * time.Second,
	}
}

// AuthConfig covers the session/token service. Failing auth locks the whole
// app, so it trips earlier than the general API.
func AuthConfig() Config {
	return Config{
		FailureThreshold: 3,
		SuccessThreshold: 2,
		RecoveryTimeout:  45 * time.Second,
	}
}

// PaymentConfig covers the payment gateway: trips fastest and demands the
// longest streak of successes before trusting the service again.
func PaymentConfig() Config {
	return Config{
		FailureThreshold: 2,
		SuccessThreshold: 4,
		RecoveryTimeout:  60 * time.Second,
	}
}

// UploadConfig covers media uploads, which tolerate a few more transient
// failures than payments.
func UploadConfig() Config {
	return Config{
		FailureThreshold: 4,
		SuccessThreshold: 2,
		RecoveryTimeout:  45 * time.Second,
	}
}

// RealtimeConfig covers the realtime/presence channel: cheap to retry, so it
// gets the shortest recovery timeout.
func RealtimeConfig() Config {
	return Config{
		FailureThreshold: 5,
		SuccessThreshold: 1,
		RecoveryTimeout:  10 * time.Second,
	}
}

// Well-known service names with pre-tuned configs, resolved by
// Registry.Service.
const (
	ServiceAPI      = "api"
	ServiceAuth     = "auth"
	ServicePayment  = "payment"
	ServiceUpload   = "upload"
	ServiceRealtime = "realtime"
)

// ServiceConfig returns the pre-tuned config for a well-known service name,
// falling back to DefaultConfig for everything else.
func ServiceConfig(service string) Config {
	switch service {
	case ServiceAPI:
		return APIConfig()
	case ServiceAuth:
		return AuthConfig()
	case ServicePayment:
		return PaymentConfig()
	case ServiceUpload:
		return UploadConfig()
	case ServiceRealtime:
		return RealtimeConfig()
	default:
		return DefaultConfig()
	}
}
