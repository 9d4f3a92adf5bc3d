// Package state holds program wide state shared by commands through context.
package state

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/encoding"

	"canvasx/config"
)

type envKey struct{}

// LocalEnv is state of a single program run.
type LocalEnv struct {
	Cfg *config.Config
	Rpt *config.Report
	Log *zap.Logger

	// export command flags
	NoDirs    bool
	Overwrite bool
	CodePage  encoding.Encoding // forced encoding of non UTF-8 names in archives

	// Now is clock used for output names.
	Now func() time.Time

	start   time.Time
	release func()
}

// ContextWithEnv returns context carrying fresh environment with no-op
// logger. Real configuration and logger are set up before any command runs.
func ContextWithEnv(ctx context.Context) context.Context {
	return context.WithValue(ctx, envKey{}, &LocalEnv{
		Log:   zap.NewNop(),
		Now:   time.Now,
		start: time.Now(),
	})
}

func EnvFromContext(ctx context.Context) *LocalEnv {
	env, ok := ctx.Value(envKey{}).(*LocalEnv)
	if !ok {
		panic("program environment is missing from context")
	}
	return env
}

// Stamp returns time export is attributed to.
func (e *LocalEnv) Stamp() time.Time {
	if e.Now == nil {
		return time.Now()
	}
	return e.Now()
}

func (e *LocalEnv) Uptime() time.Duration {
	return time.Since(e.start)
}

// SetLogger makes log the program logger. Standard library logger, which
// browser launcher writes to, is redirected there as well.
func (e *LocalEnv) SetLogger(log *zap.Logger) {
	e.ReleaseLogger()
	e.Log = log
	e.release = zap.RedirectStdLog(log.Named("std"))
}

// ReleaseLogger flushes program log and gives standard logger back.
func (e *LocalEnv) ReleaseLogger() {
	if e.release != nil {
		e.release()
		e.release = nil
	}
	if e.Log != nil {
		_ = e.Log.Sync()
	}
}
