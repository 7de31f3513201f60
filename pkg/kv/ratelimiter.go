// Package kv provides a Starskey-backed rate limiter store for the
// publish endpoints. Counters live on disk so a restart does not reset
// a client that is hammering the upload path.
package kv

import (
	"encoding/json"
	"time"

	"github.com/starskey-io/starskey"

	"github.com/pubcask/pubcask/pkg/logger"
)

// limitState is one client's counter. ResetTime is the refill anchor:
// attempts refill at rate per second measured from it, and it advances
// exactly by the time the refilled attempts account for, so fractional
// refill progress is never lost to truncation.
type limitState struct {
	Attempts  int       `json:"attempts"`
	ResetTime time.Time `json:"reset_time"`
}

// PublishLimiter implements echo's RateLimiterStore interface on top
// of a Starskey database. Each identifier (client IP) gets a leaky
// bucket of burst attempts refilled at rate per second; counters reset
// entirely once window has passed.
type PublishLimiter struct {
	db     *starskey.Starskey
	rate   float64
	burst  int
	window time.Duration
}

// NewPublishLimiter opens (or creates) the limiter database at dir.
func NewPublishLimiter(dir string, rate float64, burst int, window time.Duration) (*PublishLimiter, error) {
	db, err := starskey.Open(&starskey.Config{
		Permission:        0755,
		Directory:         dir,
		FlushThreshold:    8 * 1024 * 1024,
		MaxLevel:          3,
		SizeFactor:        10,
		BloomFilter:       true,
		SuRF:              false,
		Logging:           false,
		Compression:       true,
		CompressionOption: starskey.SnappyCompression,
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Publish rate limiter initialized",
		"path", dir, "rate", rate, "burst", burst, "window", window)

	return &PublishLimiter{db: db, rate: rate, burst: burst, window: window}, nil
}

// Allow records one attempt for identifier and reports whether it is
// under the limit.
func (l *PublishLimiter) Allow(identifier string) (bool, error) {
	var allowed bool

	err := l.db.Update(func(txn *starskey.Txn) error {
		now := time.Now()
		key := []byte(identifier)

		state := limitState{ResetTime: now}
		if value, err := txn.Get(key); err == nil && value != nil {
			if err := json.Unmarshal(value, &state); err != nil {
				state = limitState{ResetTime: now}
			}

			if now.After(state.ResetTime.Add(l.window)) {
				state.Attempts = 0
				state.ResetTime = now
			} else if l.rate > 0 {
				refilled := int(now.Sub(state.ResetTime).Seconds() * l.rate)
				if refilled >= state.Attempts {
					// Counter fully drained; excess refill is discarded.
					state.Attempts = 0
					state.ResetTime = now
				} else if refilled > 0 {
					state.Attempts -= refilled
					state.ResetTime = state.ResetTime.Add(
						time.Duration(float64(refilled) / l.rate * float64(time.Second)))
				}
			}
		}

		if state.Attempts >= l.burst {
			logger.Debug("Publish request rate limited",
				"client", identifier, "attempts", state.Attempts)
			allowed = false
			return nil
		}

		state.Attempts++
		allowed = true

		data, err := json.Marshal(state)
		if err != nil {
			return err
		}
		txn.Put(key, data)
		return nil
	})

	return allowed, err
}

// Reset clears the counter for identifier.
func (l *PublishLimiter) Reset(identifier string) (bool, error) {
	err := l.db.Delete([]byte(identifier))
	return err == nil, err
}

// Close closes the underlying database.
func (l *PublishLimiter) Close() error {
	return l.db.Close()
}
