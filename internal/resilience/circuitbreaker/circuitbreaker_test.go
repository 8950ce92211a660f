package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		Name:             "backend",
		MaxRequests:      3,
		Interval:         10 * time.Second,
		Timeout:          1 * time.Second,
		FailureThreshold: 0.6,
		MinRequests:      5,
	}
}

func TestNew(t *testing.T) {
	cb := New(testConfig())

	require.NotNil(t, cb)
	assert.Equal(t, "backend", cb.Name())
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestExecute_PassesThroughResultAndError(t *testing.T) {
	cb := New(testConfig())

	result, err := cb.Execute(func() (interface{}, error) {
		return "summary text", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "summary text", result)

	backendErr := errors.New("backend unavailable")
	result, err = cb.Execute(func() (interface{}, error) {
		return nil, backendErr
	})
	assert.ErrorIs(t, err, backendErr)
	assert.Nil(t, result)
}

func TestExecute_TripsOpenAtFailureThreshold(t *testing.T) {
	cb := New(testConfig())
	backendErr := errors.New("backend unavailable")

	// Five failures and one success: 83% failure rate over six requests.
	for i := 0; i < 4; i++ {
		_, err := cb.Execute(func() (interface{}, error) { return nil, backendErr })
		require.ErrorIs(t, err, backendErr)
	}
	_, err := cb.Execute(func() (interface{}, error) { return "ok", nil })
	require.NoError(t, err)
	_, err = cb.Execute(func() (interface{}, error) { return nil, backendErr })
	require.ErrorIs(t, err, backendErr)

	require.Equal(t, gobreaker.StateOpen, cb.State())
	assert.True(t, cb.IsOpen())

	// Open breaker short-circuits without calling the function.
	_, err = cb.Execute(func() (interface{}, error) {
		t.Fatal("function called while breaker open")
		return nil, nil
	})
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}

func TestExecute_RecoversThroughHalfOpen(t *testing.T) {
	cfg := testConfig()
	cfg.Timeout = 100 * time.Millisecond
	cb := New(cfg)

	backendErr := errors.New("backend unavailable")
	for i := 0; i < 6; i++ {
		_, _ = cb.Execute(func() (interface{}, error) { return nil, backendErr })
	}
	require.Equal(t, gobreaker.StateOpen, cb.State())

	time.Sleep(150 * time.Millisecond)

	_, err := cb.Execute(func() (interface{}, error) { return "ok", nil })
	require.NoError(t, err)
	assert.NotEqual(t, gobreaker.StateOpen, cb.State())
}

func TestExecute_StaysClosedBelowMinRequests(t *testing.T) {
	cfg := testConfig()
	cfg.FailureThreshold = 0.5
	cfg.MinRequests = 10
	cb := New(cfg)

	backendErr := errors.New("backend unavailable")
	for i := 0; i < 4; i++ {
		_, err := cb.Execute(func() (interface{}, error) { return nil, backendErr })
		require.ErrorIs(t, err, backendErr)
	}

	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestProviderConfig(t *testing.T) {
	cfg := ProviderConfig("openai")

	assert.Equal(t, "openai-provider", cfg.Name)
	assert.Equal(t, DefaultConfig("openai-provider"), cfg)
}
