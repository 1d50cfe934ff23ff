package services

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gestion/internal/core"
	"gestion/internal/log"
	"gestion/internal/storage"
)

type publishedEvent struct {
	Recurso string
	ID      int64
	Version int64
	Delete  bool
}

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (f *fakePublisher) PublishSync(_ context.Context, recurso string, id, version int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, publishedEvent{Recurso: recurso, ID: id, Version: version})
	return nil
}

func (f *fakePublisher) PublishDelete(_ context.Context, recurso string, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, publishedEvent{Recurso: recurso, ID: id, Delete: true})
	return nil
}

func (f *fakePublisher) Events() []publishedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]publishedEvent(nil), f.events...)
}

var errBrokerDown = errors.New("broker down")

func quietLogger() *log.Logger {
	return log.New(log.Config{Output: io.Discard, Component: log.ComponentApp})
}

func newTestRepo(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "gestion.db"), time.UTC)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

type testStack struct {
	repo   *storage.SQLiteRepository
	pub    *fakePublisher
	tasas  *TasaService
	stats  *StatsService
	ventas *VentaService
	gastos *GastoService
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()
	repo := newTestRepo(t)
	pub := &fakePublisher{}
	logger := quietLogger()
	tasas := NewTasaService(repo, time.Minute, core.Rate{}, logger)
	stats := NewStatsService(repo, tasas, time.Minute, logger)
	return &testStack{
		repo:   repo,
		pub:    pub,
		tasas:  tasas,
		stats:  stats,
		ventas: NewVentaService(repo, tasas, stats, pub, logger),
		gastos: NewGastoService(repo, stats, pub, logger),
	}
}

func asUser(name, rol string) context.Context {
	return WithActor(context.Background(), Actor{Username: name, Rol: rol})
}

func ptr[T any](v T) *T { return &v }

func mustRate(t *testing.T, s string) core.Rate {
	t.Helper()
	r, err := core.ParseRate(s)
	require.NoError(t, err)
	return r
}

func seedProducto(t *testing.T, repo *storage.SQLiteRepository, nombre string, precio, stock int64) core.Producto {
	t.Helper()
	p, err := repo.CreateProducto(context.Background(), core.Producto{
		Nombre: nombre, Precio: core.Money{Cents: precio}, Costo: core.Money{Cents: precio / 2}, Stock: stock,
	}, "test")
	require.NoError(t, err)
	return p
}
