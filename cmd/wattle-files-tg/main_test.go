package main

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lavrd/wattle-files-tg/internal/config"
	"github.com/lavrd/wattle-files-tg/internal/repo"
	"github.com/lavrd/wattle-files-tg/internal/types"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("ADMIN_ID", "249191443")
	t.Setenv("FILES_CHANNEL_ID", "-100500")
	t.Setenv("FILES_CHANNEL_NAME", "@anuwattlefiles")
	t.Setenv("WEBHOOK_URL", "https://bot.example.com/wattle/hook")
}

func TestMigrateCommand(t *testing.T) {
	r := require.New(t)
	setRequiredEnv(t)
	dbPath := filepath.Join(t.TempDir(), "wattle.sqlite")
	t.Setenv("DATABASE_FILEPATH", dbPath)

	cmd := newRootCmd()
	cmd.SetArgs([]string{"migrate", "--config", filepath.Join(t.TempDir(), "missing.ini")})
	r.NoError(cmd.ExecuteContext(context.Background()))

	// Running it twice is fine.
	cmd = newRootCmd()
	cmd.SetArgs([]string{"migrate", "--config", filepath.Join(t.TempDir(), "missing.ini")})
	r.NoError(cmd.ExecuteContext(context.Background()))

	db, err := repo.OpenDBAndMigrate(dbPath, repo.ModeRWC)
	r.NoError(err)
	defer func() { r.NoError(db.Close()) }()
	_, err = repo.New(db).FindUser(context.Background(), 42)
	r.True(errors.Is(err, types.ErrNotFound))
}

func TestInvalidConfig(t *testing.T) {
	r := require.New(t)
	setRequiredEnv(t)
	t.Setenv("BOT_TOKEN", "")

	cmd := newRootCmd()
	cmd.SetArgs([]string{"migrate", "--config", filepath.Join(t.TempDir(), "missing.ini")})
	err := cmd.ExecuteContext(context.Background())
	r.Error(err)
	r.True(errors.Is(err, config.ErrInvalidConfig))
}
