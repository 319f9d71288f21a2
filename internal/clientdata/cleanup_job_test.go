package clientdata

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanupJobName(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	job := NewCleanupJob(NewRepository(db), zerolog.Nop())
	assert.Equal(t, "client_data_cleanup", job.Name())
}

func TestCleanupJobRun(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	now := time.Unix(1_700_000_000, 0)
	repo := newTestRepository(db, now)
	job := NewCleanupJob(repo, zerolog.Nop())

	old := now.Add(-StaleRetention - time.Minute).Unix()
	fresh := now.Add(time.Minute).Unix()
	for _, table := range AllTables {
		_, err := db.Exec("INSERT INTO "+table+" (symbol, data, expires_at) VALUES ('OLD', x'80', ?), ('NEW', x'80', ?)", old, fresh)
		require.NoError(t, err)
	}

	require.NoError(t, job.Run())

	for _, table := range AllTables {
		var count int
		require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&count))
		assert.Equal(t, 1, count, table)
	}
}

func TestCleanupJobRun_Empty(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	assert.NoError(t, NewCleanupJob(NewRepository(db), zerolog.Nop()).Run())
}
