package memory

import (
	"context"
	"testing"

	"gestion/internal/core"
	"gestion/internal/sheets"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreUpsertAndDelete(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.AppendRow(ctx, core.RecursoVenta, sheets.Row{int64(1), "a"}))
	require.NoError(t, s.AppendRow(ctx, core.RecursoVenta, sheets.Row{int64(2), "b"}))
	require.NoError(t, s.AppendRow(ctx, core.RecursoVenta, sheets.Row{int64(1), "c"}))

	rows := s.Rows(core.RecursoVenta)
	require.Len(t, rows, 2)
	assert.Equal(t, "c", rows[0][1])

	require.NoError(t, s.DeleteRow(ctx, core.RecursoVenta, 1))
	require.NoError(t, s.DeleteRow(ctx, core.RecursoVenta, 42))
	rows = s.Rows(core.RecursoVenta)
	require.Len(t, rows, 1)
	assert.Equal(t, "2", sheets.RowID(rows[0]))
}

func TestStoreRejectsUnmirroredResource(t *testing.T) {
	s := New()
	assert.Error(t, s.AppendRow(context.Background(), core.RecursoPersonal, sheets.Row{int64(1)}))
	assert.Error(t, s.AppendRow(context.Background(), core.RecursoGasto, sheets.Row{}))
}
