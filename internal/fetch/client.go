// Package fetch provides the HTTP clients for the remote analytics API: the
// per-wallet rewards endpoint and the governance distribution endpoint.
package fetch

import (
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/yourorg/staking-dashboard/internal/config"
)

var fetchErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "dashboard_fetch_errors_total",
	Help: "Remote fetch failures by endpoint and error kind",
}, []string{"endpoint", "kind"})

// Client talks to the analytics API. Each endpoint sits behind its own
// circuit breaker so a flapping governance script cannot take wallet
// rewards down with it.
type Client struct {
	baseURL    string
	httpClient *http.Client

	rewardsBreaker    *gobreaker.CircuitBreaker
	governanceBreaker *gobreaker.CircuitBreaker
}

// New creates an analytics API client from configuration.
func New(cfg config.Config) *Client {
	return &Client{
		baseURL:           cfg.APIBaseURL,
		httpClient:        newRetryClient(),
		rewardsBreaker:    newBreaker("rewards", cfg.BreakerCooldown),
		governanceBreaker: newBreaker("governance", cfg.BreakerCooldown),
	}
}

// newRetryClient creates an HTTP client with retry logic.
func newRetryClient() *http.Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 3
	retryClient.RetryWaitMin = 500 * time.Millisecond
	retryClient.RetryWaitMax = 3 * time.Second
	retryClient.Logger = nil
	return retryClient.StandardClient()
}

// newBreaker builds a circuit breaker for one remote endpoint.
func newBreaker(name string, cooldown time.Duration) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    name,
		Timeout: cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logrus.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state change")
		},
	})
}
