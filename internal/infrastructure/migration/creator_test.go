package migration

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/energyadmin/backend/internal/infrastructure/config"
	"github.com/energyadmin/backend/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add lead tags", "add_lead_tags"},
		{"Add-Lead-Tags", "add_lead_tags"},
		{"ADD__LEAD__TAGS", "add_lead_tags"},
		{"index 2 conversion", "index_2_conversion"},
		{"   spaces   ", "spaces"},
		{"wallbox!@#$specs", "wallboxspecs"},
		{"_leading", "leading"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func TestCreateMigration(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)

	first, err := CreateMigration(dir, "add lead tags", "Index lead tags", now)
	require.NoError(t, err)
	assert.Equal(t, uint(1), first.Version)
	assert.Equal(t, filepath.Join(dir, "000001_add_lead_tags.up.sql"), first.UpPath)
	assert.Equal(t, filepath.Join(dir, "000001_add_lead_tags.down.sql"), first.DownPath)

	up, err := os.ReadFile(first.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(up), "Index lead tags")
	assert.Contains(t, string(up), "2025-06-01T09:30:00Z")

	down, err := os.ReadFile(first.DownPath)
	require.NoError(t, err)
	assert.Contains(t, string(down), "(Rollback)")

	second, err := CreateMigration(dir, "commission audit", "", now)
	require.NoError(t, err)
	assert.Equal(t, uint(2), second.Version)
}

func TestCreateMigration_RejectsEmptyName(t *testing.T) {
	_, err := CreateMigration(t.TempDir(), "!!!", "", time.Now())
	assert.Error(t, err)
}

func TestListMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"000002_add_tags.up.sql":       {Data: []byte("SELECT 1;")},
		"000001_create_leads.up.sql":   {Data: []byte("SELECT 1;")},
		"000001_create_leads.down.sql": {Data: []byte("SELECT 1;")},
		"README.md":                    {Data: []byte("notes")},
		"draft_without_version.up.sql": {Data: []byte("SELECT 1;")},
		"nested/000003_ignored.up.sql": {Data: []byte("SELECT 1;")},
	}

	entries, err := ListMigrations(fsys)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, Entry{Version: 1, Name: "create_leads", HasDown: true}, entries[0])
	assert.Equal(t, Entry{Version: 2, Name: "add_tags", HasDown: false}, entries[1])
}

func TestListMigrations_MissingDir(t *testing.T) {
	entries, err := ListMigrations(os.DirFS(filepath.Join(t.TempDir(), "missing")))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	entries, err := ListMigrations(migrations.FS)
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	assert.Equal(t, uint(1), entries[0].Version)
	for _, e := range entries {
		assert.True(t, e.HasDown, "migration %06d_%s has no rollback", e.Version, e.Name)
	}
}

func TestNewFromConfig_RequiresPostgres(t *testing.T) {
	for _, driver := range []string{"memory", "sqlite"} {
		t.Run(driver, func(t *testing.T) {
			_, err := NewFromConfig(&config.DatabaseConfig{Driver: driver}, zap.NewNop())
			assert.ErrorIs(t, err, ErrUnsupportedDriver)
		})
	}
}
