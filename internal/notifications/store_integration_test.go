package notifications

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 統合テスト。LIBRA_TEST_DSN 未設定時はスキップ。

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("LIBRA_TEST_DSN")
	if dsn == "" {
		t.Skip("LIBRA_TEST_DSN not set")
	}
	conn, err := sql.Open("mysql", dsn)
	require.NoError(t, err)
	require.NoError(t, conn.Ping())
	t.Cleanup(func() { conn.Close() })

	for _, table := range []string{"notifications", "notification_history"} {
		_, err := conn.Exec("DELETE FROM " + table)
		require.NoError(t, err)
	}
	return conn
}

const (
	testWindow  = 12 * time.Hour
	testLease   = 300 * time.Second
	testMaxTry  = 3
	testBatchSz = 50
)

func TestEnqueue_DeduplicatesAgainstPendingAndHistory(t *testing.T) {
	conn := openTestDB(t)
	store := NewStore(conn)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	created, err := store.Enqueue(ctx, 1, "a@example.com", "subject", "body", now, testWindow)
	require.NoError(t, err)
	assert.True(t, created)

	// pending に対する重複
	created, err = store.Enqueue(ctx, 1, "a@example.com", "subject", "body", now.Add(time.Hour), testWindow)
	require.NoError(t, err)
	assert.False(t, created)

	// 別会員・別件名は独立
	created, err = store.Enqueue(ctx, 2, "b@example.com", "subject", "body", now, testWindow)
	require.NoError(t, err)
	assert.True(t, created)
	created, err = store.Enqueue(ctx, 1, "a@example.com", "another subject", "body", now, testWindow)
	require.NoError(t, err)
	assert.True(t, created)

	// アーカイブ後も窓内は抑止される
	batch, err := store.ClaimBatch(ctx, "w1", now, testLease, testMaxTry, testBatchSz)
	require.NoError(t, err)
	for _, n := range batch {
		require.NoError(t, store.MarkSuccess(ctx, n, now))
	}
	created, err = store.Enqueue(ctx, 1, "a@example.com", "subject", "body", now.Add(2*time.Hour), testWindow)
	require.NoError(t, err)
	assert.False(t, created)

	// 窓を超えれば再度積める
	created, err = store.Enqueue(ctx, 1, "a@example.com", "subject", "body", now.Add(testWindow+time.Minute), testWindow)
	require.NoError(t, err)
	assert.True(t, created)
}

func TestClaimBatch_LeaseIsExclusiveUntilTimeout(t *testing.T) {
	conn := openTestDB(t)
	store := NewStore(conn)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	_, err := store.Enqueue(ctx, 1, "a@example.com", "subject", "body", now, testWindow)
	require.NoError(t, err)

	first, err := store.ClaimBatch(ctx, "w1", now, testLease, testMaxTry, testBatchSz)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, 1, first[0].RetryCount)
	assert.Equal(t, "w1", first[0].ProcessID.String)

	// リース有効中の別ワーカーは空振り
	second, err := store.ClaimBatch(ctx, "w2", now.Add(time.Minute), testLease, testMaxTry, testBatchSz)
	require.NoError(t, err)
	assert.Empty(t, second)

	// 期限切れ後は回収され、試行回数が進む
	third, err := store.ClaimBatch(ctx, "w3", now.Add(testLease+time.Minute), testLease, testMaxTry, testBatchSz)
	require.NoError(t, err)
	require.Len(t, third, 1)
	assert.Equal(t, 2, third[0].RetryCount)
	assert.Equal(t, "w3", third[0].ProcessID.String)
}

func TestClaimBatch_HonorsBatchLimitAndCreationOrder(t *testing.T) {
	conn := openTestDB(t)
	store := NewStore(conn)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	for i := 0; i < 5; i++ {
		_, err := store.Enqueue(ctx, int64(i+1), "m@example.com", "subject", "body",
			now.Add(time.Duration(i)*time.Second), testWindow)
		require.NoError(t, err)
	}

	batch, err := store.ClaimBatch(ctx, "w1", now.Add(time.Minute), testLease, testMaxTry, 3)
	require.NoError(t, err)
	require.Len(t, batch, 3)
	for i := 1; i < len(batch); i++ {
		assert.False(t, batch[i].CreatedAt.Before(batch[i-1].CreatedAt))
	}
}

func TestMarkSuccess_MovesEntryToHistory(t *testing.T) {
	conn := openTestDB(t)
	store := NewStore(conn)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	_, err := store.Enqueue(ctx, 1, "a@example.com", "subject", "body", now, testWindow)
	require.NoError(t, err)
	batch, err := store.ClaimBatch(ctx, "w1", now, testLease, testMaxTry, testBatchSz)
	require.NoError(t, err)
	require.Len(t, batch, 1)

	require.NoError(t, store.MarkSuccess(ctx, batch[0], now))

	pending, err := store.CountPending(ctx)
	require.NoError(t, err)
	assert.Zero(t, pending)

	history, err := store.ListHistory(ctx, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.True(t, history[0].Success)
	assert.Equal(t, "a@example.com", history[0].Email)
}

func TestMarkFailure_ArchivesOnlyWhenAttemptsExhausted(t *testing.T) {
	conn := openTestDB(t)
	store := NewStore(conn)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	_, err := store.Enqueue(ctx, 1, "a@example.com", "subject", "body", now, testWindow)
	require.NoError(t, err)

	claimAt := now
	for attempt := 1; attempt <= testMaxTry; attempt++ {
		batch, err := store.ClaimBatch(ctx, "w1", claimAt, testLease, testMaxTry, testBatchSz)
		require.NoError(t, err)
		require.Len(t, batch, 1, "attempt %d", attempt)
		require.Equal(t, attempt, batch[0].RetryCount)

		archived, err := store.MarkFailure(ctx, batch[0], "smtp timeout", claimAt, testMaxTry)
		require.NoError(t, err)
		assert.Equal(t, attempt == testMaxTry, archived, "attempt %d", attempt)

		claimAt = claimAt.Add(testLease + time.Minute)
	}

	pending, err := store.CountPending(ctx)
	require.NoError(t, err)
	assert.Zero(t, pending)

	history, err := store.ListHistory(ctx, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.False(t, history[0].Success)
	assert.Equal(t, "smtp timeout", history[0].ErrorMessage.String)

	// 枯渇後の再取得なし
	batch, err := store.ClaimBatch(ctx, "w9", claimAt, testLease, testMaxTry, testBatchSz)
	require.NoError(t, err)
	assert.Empty(t, batch)
}
