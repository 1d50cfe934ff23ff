package storage

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gestion/internal/apperr"
)

func newMockRepo(t *testing.T) (*SQLiteRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewWithDB(db, time.UTC), mock
}

func TestDeleteGastoRollsBackWhenHistorialFails(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + gastoColumns + " FROM gastos WHERE id = ?")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "descripcion", "categoria", "monto_cents", "fecha", "metodo_pago"}).
			AddRow(7, "Luz", "servicios", 2500, "2024-05-01 08:00:00", ""))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM gastos WHERE id = ?")).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO historial")).
		WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	err := repo.DeleteGasto(context.Background(), 7, "ana")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert historial")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetGastoNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM gastos WHERE id = ?")).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "descripcion", "categoria", "monto_cents", "fecha", "metodo_pago"}))

	_, err := repo.GetGasto(context.Background(), 3)
	assert.True(t, apperr.IsNotFound(err))
	assert.Equal(t, "Gasto con ID 3 no encontrado", err.Error())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkSyncedIgnoresStaleVersion(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE ventas SET sync_status = 'synced' WHERE id = ? AND version = ?")).
		WithArgs(int64(1), int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.MarkSynced(context.Background(), "ventas", 1, 2))
	assert.NoError(t, mock.ExpectationsWereMet())
}
