package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/l1jgo/lifecycle/internal/config"
	"github.com/l1jgo/lifecycle/internal/core/process"
)

// stubbornProc never finishes leaving on its own: it either fails or asks for
// another tick, depending on failLeave.
type stubbornProc struct {
	process.Process
	failLeave bool
	leaves    int
	linger    int // ticks to stay in Leaving before finishing
}

func (s *stubbornProc) DoRunning() error {
	s.SetResult(0)
	return nil
}

func (s *stubbornProc) DoLeaving() error {
	s.leaves++
	if s.failLeave {
		return errors.New("stuck")
	}
	if s.leaves <= s.linger {
		s.SetResult(0)
		return nil
	}
	return s.Process.DoLeaving()
}

// alwaysTicking never blocks a receive.
func alwaysTicking() <-chan time.Time {
	ch := make(chan time.Time)
	close(ch)
	return ch
}

func cancelled() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}

func TestResolveConfig(t *testing.T) {
	t.Setenv("LIFECYCLE_CONFIG", "")
	assert.Equal(t, defaultConfig, resolveConfig(""))

	t.Setenv("LIFECYCLE_CONFIG", "/etc/lifecycle.toml")
	assert.Equal(t, "/etc/lifecycle.toml", resolveConfig(""))
	assert.Equal(t, "local.toml", resolveConfig("local.toml"))
}

func TestNewLogger(t *testing.T) {
	log, err := newLogger(config.LoggingConfig{Level: "debug", Format: "json"})
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(zapcore.DebugLevel))

	log, err = newLogger(config.LoggingConfig{Level: "nonsense"})
	require.NoError(t, err)
	assert.False(t, log.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, log.Core().Enabled(zapcore.InfoLevel))
}

func TestCommands(t *testing.T) {
	cmd := rootCmd()
	names := make([]string, 0, 2)
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"run", "version"}, names)
	assert.NotNil(t, cmd.PersistentFlags().Lookup("config"))
}

func TestLoopKillsOnceAndLetsRootLeave(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	root := &stubbornProc{Process: process.New("main"), linger: 2}
	root.Start()

	l := &loop{engine: process.NewEngine(), root: root, dt: time.Millisecond, log: zap.New(core)}
	l.run(cancelled(), alwaysTicking())

	assert.True(t, root.Terminated())
	assert.Equal(t, 3, root.leaves)
	assert.Equal(t, 1, logs.FilterMessage("shutdown requested").Len())
}

func TestLoopAbandonsFailingRoot(t *testing.T) {
	root := &stubbornProc{Process: process.New("main"), failLeave: true}
	root.Start()

	abandoned := 0
	observed := 0
	l := &loop{
		engine:  process.NewEngine(),
		root:    root,
		dt:      time.Millisecond,
		log:     zap.NewNop(),
		abandon: func() { abandoned++ },
		observe: func(time.Duration) { observed++ },
	}
	l.run(cancelled(), alwaysTicking())

	assert.True(t, root.Terminated())
	assert.Equal(t, maxRunFailures, root.leaves)
	assert.Equal(t, 1, abandoned)
	assert.GreaterOrEqual(t, observed, maxRunFailures)
}
