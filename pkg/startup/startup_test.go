package startup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStartup(maxAttempts int) *Startup {
	s := NewStartup(ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {}), maxAttempts)
	s.sleep = func(context.Context, time.Duration) error { return nil }
	return s
}

func TestStartup_StartsDependenciesInOrder(t *testing.T) {
	s := newTestStartup(1)
	var started []string
	record := func(name string) func(context.Context) error {
		return func(context.Context) error {
			started = append(started, name)
			return nil
		}
	}

	s.AddDependency(&Dependency{Name: "http", Requires: []string{"database", "cache"}, StartFunc: record("http")})
	s.AddDependency(&Dependency{Name: "database", StartFunc: record("database")})
	s.AddDependency(&Dependency{Name: "cache", Requires: []string{"database"}, StartFunc: record("cache")})

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, []string{"database", "cache", "http"}, started)
	assert.Equal(t, StartupStatusStarted, s.Status("http"))
}

func TestStartup_RetriesUntilSuccess(t *testing.T) {
	s := newTestStartup(3)
	calls := 0
	s.AddDependency(&Dependency{Name: "database", StartFunc: func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("connection refused")
		}
		return nil
	}})

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, 3, calls)
}

func TestStartup_FailsAfterMaxAttempts(t *testing.T) {
	s := newTestStartup(2)
	s.AddDependency(&Dependency{Name: "database", StartFunc: func(context.Context) error {
		return errors.New("connection refused")
	}})

	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 attempts")
	assert.Equal(t, StartupStatusFailed, s.Status("database"))
}

func TestStartup_MissingDependency(t *testing.T) {
	s := newTestStartup(1)
	s.AddDependency(&Dependency{Name: "http", Requires: []string{"database"}})

	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not registered")
}

func TestStartup_StopReverseOrder(t *testing.T) {
	s := newTestStartup(1)
	var stopped []string
	stop := func(name string) func(context.Context) error {
		return func(context.Context) error {
			stopped = append(stopped, name)
			return nil
		}
	}
	s.AddDependency(&Dependency{Name: "database", StopFunc: stop("database")})
	s.AddDependency(&Dependency{Name: "http", Requires: []string{"database"}, StopFunc: stop("http")})

	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Stop(context.Background()))
	assert.Equal(t, []string{"http", "database"}, stopped)
}
