// Package system holds the tick systems that drive the lifecycle world. Each
// one owns a single phase of the tick; the runner orders them.
package system

import "go.uber.org/zap"

// ErrorCounter receives one count per failed system step. *metrics.Metrics
// satisfies it; nil disables counting.
type ErrorCounter interface {
	CountError(system string)
}

// reporter logs and counts system errors under one system name.
type reporter struct {
	name   string
	log    *zap.Logger
	errors ErrorCounter
}

func (r reporter) report(msg string, err error) {
	if err == nil {
		return
	}
	r.log.Warn(msg, zap.String("system", r.name), zap.Error(err))
	if r.errors != nil {
		r.errors.CountError(r.name)
	}
}
