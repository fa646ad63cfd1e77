package client

import (
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/cenk/backoff"
	circuit "github.com/rubyist/circuitbreaker"
)

// ErrCircuitOpen is returned when an upstream host's breaker is open.
var ErrCircuitOpen = errors.New("circuit breaker open")

// BreakerGroup maintains one circuit breaker per upstream host so a flapping
// registry trips only its own circuit and never blocks checks against
// healthy hosts.
type BreakerGroup struct {
	breakers map[string]*circuit.Breaker
	mu       sync.RWMutex
}

// NewBreakerGroup creates an empty breaker group.
func NewBreakerGroup() *BreakerGroup {
	return &BreakerGroup{
		breakers: make(map[string]*circuit.Breaker),
	}
}

// getBreaker returns or creates the breaker for the given host.
func (g *BreakerGroup) getBreaker(host string) *circuit.Breaker {
	g.mu.RLock()
	breaker, exists := g.breakers[host]
	g.mu.RUnlock()

	if exists {
		return breaker
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	// Double-check after acquiring write lock
	if breaker, exists := g.breakers[host]; exists {
		return breaker
	}

	// Trips after 5 consecutive failures, resets on exponential backoff
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = 30 * time.Second
	expBackoff.MaxInterval = 5 * time.Minute
	expBackoff.Multiplier = 2.0
	expBackoff.Reset()

	opts := &circuit.Options{
		BackOff:    expBackoff,
		ShouldTrip: circuit.ThresholdTripFunc(5),
	}
	breaker = circuit.NewBreakerWithOptions(opts)

	g.breakers[host] = breaker
	return breaker
}

// Call runs fn under the breaker for host. When the circuit is open the
// call is rejected immediately with ErrCircuitOpen.
func (g *BreakerGroup) Call(host string, fn func() error) error {
	breaker := g.getBreaker(host)

	if !breaker.Ready() {
		return fmt.Errorf("host %s: %w", host, ErrCircuitOpen)
	}

	return breaker.Call(fn, 0)
}

// States returns the current state of all breakers (for health checks).
func (g *BreakerGroup) States() map[string]string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	states := make(map[string]string)
	for host, breaker := range g.breakers {
		if breaker.Tripped() {
			states[host] = "open"
		} else {
			states[host] = "closed"
		}
	}
	return states
}

// HostKey extracts the breaker key from a URL.
func HostKey(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		if len(rawURL) > 50 {
			return rawURL[:50]
		}
		return rawURL
	}
	return parsed.Host
}
