package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/quailyquaily/cmdbridge/agent"
	"github.com/quailyquaily/cmdbridge/db"
	"github.com/quailyquaily/cmdbridge/guard"
	"github.com/quailyquaily/cmdbridge/history"
	"github.com/quailyquaily/cmdbridge/policy"
	"github.com/quailyquaily/cmdbridge/session"
	"github.com/quailyquaily/cmdbridge/shell"
	"github.com/spf13/viper"
	"gorm.io/gorm"
)

// app is everything one command invocation needs to run turns.
type app struct {
	log     *slog.Logger
	pol     *policy.Policy
	guard   *guard.Guard
	sess    *session.State
	exec    *shell.Executor
	history *history.GormStore
	gdb     *gorm.DB
}

func newApp(ctx context.Context, f *rootFlags, logOut io.Writer) (*app, error) {
	log, err := loggerFromViper(logOut)
	if err != nil {
		return nil, err
	}
	pol, err := policyFromViper(f.policy)
	if err != nil {
		return nil, err
	}
	sess, err := session.New(pol.RootDir())
	if err != nil {
		return nil, err
	}
	sh, err := shell.Locate(viper.GetString("shell.name"))
	if err != nil {
		return nil, err
	}
	log.Debug("shell_located", "name", sh.Name, "path", sh.Path, "dialect", sh.Dialect.String())

	a := &app{
		log:  log,
		pol:  pol,
		sess: sess,
		exec: shell.New(sh,
			shell.WithMaxOutputBytes(viper.GetInt("shell.max_output_bytes")),
			shell.WithLogger(log),
		),
	}
	a.history, a.gdb, err = historyFromViper(ctx, log)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	a.guard = guardFromViper(pol, log)
	return a, nil
}

func (a *app) engine(opts ...agent.Option) *agent.Engine {
	all := []agent.Option{agent.WithLogger(a.log)}
	if a.history != nil {
		all = append(all, agent.WithHistory(a.history))
	}
	return agent.New(a.guard, a.exec, a.sess, append(all, opts...)...)
}

func (a *app) Close() error {
	var errs []error
	if a.guard != nil {
		errs = append(errs, a.guard.Close())
	}
	if a.gdb != nil {
		errs = append(errs, db.Close(a.gdb))
	}
	return errors.Join(errs...)
}
