package migrate

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/openbiocard/openbiocard-backend/pkg/config"
	"github.com/openbiocard/openbiocard-backend/pkg/db"
	"github.com/openbiocard/openbiocard-backend/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
)

func TestShardEntriesMigrationContainsSchema(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_shard_entries.sql"))
	require.NoError(t, err)
	require.NotEmpty(t, matches)

	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	content := string(data)

	for _, sub := range []string{
		"CREATE TABLE IF NOT EXISTS shard_entries",
		"PRIMARY KEY (namespace, entry_key)",
		"DROP TABLE IF EXISTS shard_entries",
	} {
		assert.Contains(t, content, sub)
	}
}

func TestValidateDirAcceptsRepoMigrations(t *testing.T) {
	require.NoError(t, ValidateDir("migrations"))
}

func TestDialect(t *testing.T) {
	d, err := Dialect(config.StoragePostgres)
	require.NoError(t, err)
	assert.Equal(t, "postgres", d)

	d, err = Dialect(config.StorageSQLite)
	require.NoError(t, err)
	assert.Equal(t, "sqlite3", d)

	_, err = Dialect(config.StorageMemory)
	require.Error(t, err)
}

func TestMaybeRunAppliesEmbeddedMigrationsOnSQLite(t *testing.T) {
	conn, err := db.Open(sqlite.Open("file:" + t.Name() + "?mode=memory&cache=shared"))
	require.NoError(t, err)
	client := db.FromGorm(conn, config.StorageSQLite)
	defer client.Close()

	cfg := &config.Config{DB: config.DBConfig{AutoMigrate: true}}
	require.NoError(t, MaybeRun(context.Background(), cfg, logger.Nop(), client))
	assert.True(t, conn.Migrator().HasTable("shard_entries"))
}

func TestMaybeRunSkipsWhenDisabled(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: config.AppEnvProd}}
	require.NoError(t, MaybeRun(context.Background(), cfg, logger.Nop(), nil))
}

func TestCreateSQLMigrationSanitizesName(t *testing.T) {
	dir := t.TempDir()
	path, err := CreateSQLMigration(dir, "Add Profile Index!")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "_add_profile_index.sql"))
	require.NoError(t, ValidateDir(dir))
}
