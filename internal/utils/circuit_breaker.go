// Package utils provides utility functions and circuit breaker implementation
package utils

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// CircuitBreakerState represents the current state of the circuit breaker
type CircuitBreakerState int32

const (
	StateClosed CircuitBreakerState = iota
	StateOpen
	StateHalfOpen
)

// String returns the lower-case state name.
func (s CircuitBreakerState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// CircuitBreaker protects calls to an external dependency such as the GitHub API.
type CircuitBreaker struct {
	name string

	failureThreshold int32
	resetTimeout     time.Duration
	callTimeout      time.Duration

	state        int32
	failures     int32
	lastFailTime int64

	totalRequests  int64
	totalFailures  int64
	totalSuccesses int64
	totalRejected  int64

	// halfOpenMu admits a single trial call while half-open.
	halfOpenMu sync.Mutex
}

// CircuitBreakerConfig holds configuration for circuit breaker
type CircuitBreakerConfig struct {
	Name             string
	FailureThreshold int32
	ResetTimeout     time.Duration
	CallTimeout      time.Duration
}

// NewCircuitBreaker creates a new circuit breaker
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 5
	}
	if config.CallTimeout <= 0 {
		config.CallTimeout = 30 * time.Second
	}
	return &CircuitBreaker{
		name:             config.Name,
		failureThreshold: config.FailureThreshold,
		resetTimeout:     config.ResetTimeout,
		callTimeout:      config.CallTimeout,
		state:            int32(StateClosed),
	}
}

// Call executes fn unless the breaker is open. Context cancellation by the
// caller is not counted as a failure of the dependency.
func (cb *CircuitBreaker) Call(ctx context.Context, fn func(context.Context) error) error {
	if !cb.canExecute() {
		atomic.AddInt64(&cb.totalRejected, 1)
		return NewCircuitBreakerError("circuit breaker "+cb.name+" is open", cb.getState())
	}

	if cb.getState() == StateHalfOpen {
		if !cb.halfOpenMu.TryLock() {
			atomic.AddInt64(&cb.totalRejected, 1)
			return NewCircuitBreakerError("circuit breaker "+cb.name+" is probing", StateHalfOpen)
		}
		defer cb.halfOpenMu.Unlock()
	}

	callCtx, cancel := context.WithTimeout(ctx, cb.callTimeout)
	defer cancel()

	err := fn(callCtx)
	atomic.AddInt64(&cb.totalRequests, 1)

	if err != nil && ctx.Err() == nil {
		cb.recordFailure()
		atomic.AddInt64(&cb.totalFailures, 1)
		return err
	}
	if err != nil {
		return err
	}

	cb.recordSuccess()
	atomic.AddInt64(&cb.totalSuccesses, 1)
	return nil
}

func (cb *CircuitBreaker) canExecute() bool {
	switch cb.getState() {
	case StateClosed, StateHalfOpen:
		return true
	case StateOpen:
		if cb.shouldAttemptReset() {
			cb.setState(StateHalfOpen)
			return true
		}
		return false
	default:
		return false
	}
}

func (cb *CircuitBreaker) recordFailure() {
	atomic.StoreInt64(&cb.lastFailTime, time.Now().UnixNano())

	if cb.getState() == StateHalfOpen {
		cb.setState(StateOpen)
		return
	}
	if atomic.AddInt32(&cb.failures, 1) >= cb.failureThreshold {
		cb.setState(StateOpen)
	}
}

func (cb *CircuitBreaker) recordSuccess() {
	atomic.StoreInt32(&cb.failures, 0)
	if cb.getState() == StateHalfOpen {
		cb.setState(StateClosed)
		Info("circuit breaker closed", "name", cb.name)
	}
}

func (cb *CircuitBreaker) shouldAttemptReset() bool {
	lastFailTime := atomic.LoadInt64(&cb.lastFailTime)
	if lastFailTime == 0 {
		return true
	}
	return time.Since(time.Unix(0, lastFailTime)) >= cb.resetTimeout
}

// GetState returns current circuit breaker state
func (cb *CircuitBreaker) GetState() CircuitBreakerState {
	return cb.getState()
}

func (cb *CircuitBreaker) getState() CircuitBreakerState {
	return CircuitBreakerState(atomic.LoadInt32(&cb.state))
}

func (cb *CircuitBreaker) setState(state CircuitBreakerState) {
	old := CircuitBreakerState(atomic.SwapInt32(&cb.state, int32(state)))
	if old != state && state == StateOpen {
		Warn("circuit breaker opened", "name", cb.name)
	}
}

// GetMetrics returns current circuit breaker metrics
func (cb *CircuitBreaker) GetMetrics() CircuitBreakerMetrics {
	return CircuitBreakerMetrics{
		State:           cb.getState().String(),
		TotalRequests:   atomic.LoadInt64(&cb.totalRequests),
		TotalFailures:   atomic.LoadInt64(&cb.totalFailures),
		TotalSuccesses:  atomic.LoadInt64(&cb.totalSuccesses),
		TotalRejected:   atomic.LoadInt64(&cb.totalRejected),
		CurrentFailures: atomic.LoadInt32(&cb.failures),
	}
}

// CircuitBreakerMetrics holds circuit breaker performance metrics
type CircuitBreakerMetrics struct {
	State           string `json:"state"`
	TotalRequests   int64  `json:"total_requests"`
	TotalFailures   int64  `json:"total_failures"`
	TotalSuccesses  int64  `json:"total_successes"`
	TotalRejected   int64  `json:"total_rejected"`
	CurrentFailures int32  `json:"current_failures"`
}

// CircuitBreakerError is returned when a call is rejected without running.
type CircuitBreakerError struct {
	Message string
	State   CircuitBreakerState
}

func (e *CircuitBreakerError) Error() string {
	return e.Message
}

// NewCircuitBreakerError creates a new circuit breaker error
func NewCircuitBreakerError(message string, state CircuitBreakerState) *CircuitBreakerError {
	return &CircuitBreakerError{
		Message: message,
		State:   state,
	}
}

// CircuitBreakerRegistry manages multiple circuit breakers
type CircuitBreakerRegistry struct {
	breakers map[string]*CircuitBreaker
	mu       sync.RWMutex
}

// NewCircuitBreakerRegistry creates a new registry
func NewCircuitBreakerRegistry() *CircuitBreakerRegistry {
	return &CircuitBreakerRegistry{
		breakers: make(map[string]*CircuitBreaker),
	}
}

// GetOrCreate gets an existing circuit breaker or creates a new one
func (r *CircuitBreakerRegistry) GetOrCreate(name string, config CircuitBreakerConfig) *CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if breaker, exists := r.breakers[name]; exists {
		return breaker
	}

	config.Name = name
	breaker := NewCircuitBreaker(config)
	r.breakers[name] = breaker
	return breaker
}

// GetAllMetrics returns metrics for all circuit breakers
func (r *CircuitBreakerRegistry) GetAllMetrics() map[string]CircuitBreakerMetrics {
	r.mu.RLock()
	defer r.mu.RUnlock()

	metrics := make(map[string]CircuitBreakerMetrics, len(r.breakers))
	for name, breaker := range r.breakers {
		metrics[name] = breaker.GetMetrics()
	}
	return metrics
}

var globalRegistry = NewCircuitBreakerRegistry()

// GetCircuitBreaker gets or creates a circuit breaker from the global registry
func GetCircuitBreaker(name string, config CircuitBreakerConfig) *CircuitBreaker {
	return globalRegistry.GetOrCreate(name, config)
}

// GetCircuitBreakerMetrics returns metrics from the global registry
func GetCircuitBreakerMetrics() map[string]CircuitBreakerMetrics {
	return globalRegistry.GetAllMetrics()
}
