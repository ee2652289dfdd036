// Package console wires the client components into one explicitly
// constructed object with a defined init/teardown lifecycle. Nothing in
// this repo holds session or job state at package level.
package console

import (
	"context"
	"log/slog"

	"github.com/emanuelplopu/MongoDB-RAG-Agent-sub000/internal/api"
	"github.com/emanuelplopu/MongoDB-RAG-Agent-sub000/internal/config"
	"github.com/emanuelplopu/MongoDB-RAG-Agent-sub000/internal/guard"
	"github.com/emanuelplopu/MongoDB-RAG-Agent-sub000/internal/models"
	"github.com/emanuelplopu/MongoDB-RAG-Agent-sub000/internal/poll"
	"github.com/emanuelplopu/MongoDB-RAG-Agent-sub000/internal/session"
	"github.com/emanuelplopu/MongoDB-RAG-Agent-sub000/internal/stream"
	"github.com/emanuelplopu/MongoDB-RAG-Agent-sub000/internal/transport"
	"github.com/emanuelplopu/MongoDB-RAG-Agent-sub000/internal/watch"
)

// App owns every component of the console client.
type App struct {
	Config     config.Config
	Logger     *slog.Logger
	API        *api.Client
	Session    *session.Guard
	Streams    *stream.Adapter
	Poller     *poll.Scheduler
	Reconciler *watch.Reconciler
	Guard      *guard.Guard
	Store      *watch.Store
}

// New builds and wires the full component graph.
func New(cfg config.Config, logger *slog.Logger) *App {
	t := transport.New(transport.Config{
		BaseURL:    cfg.ServerURL,
		Timeout:    cfg.RequestTimeout,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	apiClient := api.New(t)

	var tokenStore session.TokenStore
	if cfg.TokenFile != "" {
		tokenStore = session.NewFileStore(cfg.TokenFile)
	}
	sess := session.New(session.Config{
		Backend:     apiClient,
		Store:       tokenStore,
		ValidateTTL: cfg.ValidateTTL,
		Logger:      logger,
	})
	t.SetCredentials(sess)
	t.OnUnauthorized(sess.HandleUnauthorized)

	streams := stream.New(stream.Config{
		BaseURL: cfg.ServerURL,
		Creds:   sess,
		LogCap:  cfg.LogBufferCap,
		Logger:  logger,
	})

	app := &App{
		Config:  cfg,
		Logger:  logger,
		API:     apiClient,
		Session: sess,
		Streams: streams,
		Guard:   guard.New(cfg.Cooldown),
		Store:   watch.NewStore(),
	}

	app.Poller = poll.New(app.refreshStatus, logger)
	app.Reconciler = watch.New(watch.Config{
		Poller:       app.Poller,
		Streams:      streams,
		PollInterval: cfg.PollInterval,
		Logger:       logger,
	})
	streams.SetHandlers(stream.Handlers{
		OnEvent: app.Reconciler.ApplyEvent,
		OnDown:  app.Reconciler.HandleStreamDown,
	})

	return app
}

// TailLogs routes live log entries to fn on top of the standard handler
// wiring, and reports logs-stream failures through onDown. The reconciler
// keeps receiving job events and down notices unchanged.
func (a *App) TailLogs(fn func(models.LogEntry), onDown func(error)) {
	a.Streams.SetHandlers(stream.Handlers{
		OnLog:   fn,
		OnEvent: a.Reconciler.ApplyEvent,
		OnDown: func(kind stream.Kind, err error) {
			a.Reconciler.HandleStreamDown(kind, err)
			if kind == stream.KindLogs && onDown != nil {
				onDown(err)
			}
		},
	})
}

// Close releases every live resource: the poll loop and both streams.
func (a *App) Close() {
	a.Poller.Deactivate()
	a.Streams.Close(stream.KindJobEvents)
	a.Streams.Close(stream.KindLogs)
}

// refreshStatus is the poll tick: fetch the job snapshot and hand it to
// the reconciler. A snapshot that arrives after the tick's context was
// cancelled (loop deactivated) is discarded, never applied.
func (a *App) refreshStatus(ctx context.Context) error {
	status, err := a.API.JobStatus(ctx)
	if err != nil {
		return err
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	a.Reconciler.ApplyPoll(*status)
	return nil
}

// RefreshStatus fetches the current job snapshot on demand.
func (a *App) RefreshStatus(ctx context.Context) error {
	return a.refreshStatus(ctx)
}

// RefreshQueue reloads the pending queue into the store.
func (a *App) RefreshQueue(ctx context.Context) error {
	entries, err := a.API.ListQueue(ctx)
	if err != nil {
		return err
	}
	a.Store.SetQueue(entries)
	return nil
}

// RefreshSchedules reloads the schedules into the store.
func (a *App) RefreshSchedules(ctx context.Context) error {
	schedules, err := a.API.ListSchedules(ctx)
	if err != nil {
		return err
	}
	a.Store.SetSchedules(schedules)
	return nil
}
