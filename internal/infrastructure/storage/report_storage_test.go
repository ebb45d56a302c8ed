package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStorage(t *testing.T) (*ReportStorage, string) {
	t.Helper()
	dir := t.TempDir()
	logger, _ := zap.NewDevelopment()
	return NewReportStorage(dir, logger), dir
}

func TestReportStorage_Save(t *testing.T) {
	s, dir := newTestStorage(t)
	ctx := context.Background()

	t.Run("creates parent directories", func(t *testing.T) {
		require.NoError(t, s.Save(ctx, "site-1/2024-03-15.xlsx", []byte("report")))

		content, err := os.ReadFile(filepath.Join(dir, "site-1", "2024-03-15.xlsx"))
		require.NoError(t, err)
		assert.Equal(t, []byte("report"), content)
	})

	t.Run("overwrites existing report", func(t *testing.T) {
		require.NoError(t, s.Save(ctx, "site-1/daily.xlsx", []byte("first")))
		require.NoError(t, s.Save(ctx, "site-1/daily.xlsx", []byte("second")))

		content, err := s.Read(ctx, "site-1/daily.xlsx")
		require.NoError(t, err)
		assert.Equal(t, []byte("second"), content)
	})

	t.Run("leaves no temp files", func(t *testing.T) {
		entries, err := os.ReadDir(filepath.Join(dir, "site-1"))
		require.NoError(t, err)
		for _, e := range entries {
			assert.NotContains(t, e.Name(), ".report-")
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		assert.ErrorIs(t, s.Save(cctx, "site-1/late.xlsx", []byte("x")), context.Canceled)
		assert.False(t, s.Exists(ctx, "site-1/late.xlsx"))
	})
}

func TestReportStorage_PathEscape(t *testing.T) {
	s, _ := newTestStorage(t)
	ctx := context.Background()

	for _, path := range []string{"../outside.xlsx", "site-1/../../outside.xlsx", "", "."} {
		t.Run(path, func(t *testing.T) {
			assert.ErrorIs(t, s.Save(ctx, path, []byte("x")), ErrPathEscapesBase)
			_, err := s.Read(ctx, path)
			assert.ErrorIs(t, err, ErrPathEscapesBase)
			assert.False(t, s.Exists(ctx, path))
		})
	}
}

func TestReportStorage_Exists(t *testing.T) {
	s, _ := newTestStorage(t)
	ctx := context.Background()

	assert.False(t, s.Exists(ctx, "missing.xlsx"))
	require.NoError(t, s.Save(ctx, "dir/present.xlsx", []byte("x")))
	assert.True(t, s.Exists(ctx, "dir/present.xlsx"))
	assert.False(t, s.Exists(ctx, "dir"))
}

func TestSafeName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"site-1", "site-1"},
		{"../etc", "etc"},
		{"north/pit 2", "northpit2"},
		{"MMU_07", "MMU_07"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SafeName(tt.in), tt.in)
	}
}
