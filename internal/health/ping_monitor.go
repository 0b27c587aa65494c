package health

import (
	"log/slog"
	"sync"
	"time"
)

// PingMonitor watches latency samples reported by the connection and fires
// once when the ping stays above Threshold for at least Sustained.
type PingMonitor struct {
	Threshold     int
	Sustained     time.Duration
	CheckInterval time.Duration
	Logger        *slog.Logger
	OnHighPing    func(ping int, elapsed time.Duration)

	mu        sync.Mutex
	now       func() time.Time
	highSince time.Time
	lastCheck time.Time
	fired     bool
}

func NewPingMonitor(logger *slog.Logger, threshold int, sustained time.Duration) *PingMonitor {
	return &PingMonitor{
		Threshold:     threshold,
		Sustained:     sustained,
		CheckInterval: 2 * time.Second,
		Logger:        logger,
		now:           time.Now,
	}
}

// WithClock replaces the time source, tests drive it by hand.
func (pm *PingMonitor) WithClock(now func() time.Time) *PingMonitor {
	pm.now = now
	return pm
}

// Observe feeds one sample. It returns true exactly once per high-ping
// episode, the moment the episode has lasted long enough.
func (pm *PingMonitor) Observe(ping int) bool {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	now := pm.now()
	if !pm.lastCheck.IsZero() && now.Sub(pm.lastCheck) < pm.CheckInterval {
		return false
	}
	pm.lastCheck = now

	// a sub-10ms reading is a measurement glitch
	if ping < 10 {
		ping = 50
	}

	if ping <= pm.Threshold {
		if !pm.highSince.IsZero() {
			pm.Logger.Info("Ping returned to normal",
				slog.Int("ping", ping),
				slog.Duration("highPingDuration", now.Sub(pm.highSince)))
		}
		pm.highSince = time.Time{}
		pm.fired = false
		return false
	}

	if pm.highSince.IsZero() {
		pm.highSince = now
		pm.Logger.Warn("High ping detected, starting monitor",
			slog.Int("ping", ping),
			slog.Int("threshold", pm.Threshold),
			slog.Duration("sustainedDuration", pm.Sustained))
		return false
	}

	elapsed := now.Sub(pm.highSince)
	if elapsed < pm.Sustained || pm.fired {
		return false
	}
	pm.fired = true
	pm.Logger.Error("Sustained high ping detected", slog.Int("ping", ping), slog.Duration("duration", elapsed))
	if pm.OnHighPing != nil {
		pm.OnHighPing(ping, elapsed)
	}
	return true
}

// Reset forgets any episode in progress, used when a new session starts.
func (pm *PingMonitor) Reset() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.highSince = time.Time{}
	pm.lastCheck = time.Time{}
	pm.fired = false
}
