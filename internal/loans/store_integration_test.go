package loans

import (
	"context"
	"database/sql"
	"os"
	"sync"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"LIBRA-backend/internal/platform/apperr"
)

// 統合テスト。LIBRA_TEST_DSN 未設定時はスキップ。
// 例: LIBRA_TEST_DSN="library:library@tcp(127.0.0.1:3306)/library_test?parseTime=true&loc=UTC"

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

	for _, table := range []string{"notifications", "notification_history", "loans", "books", "members"} {
		_, err := conn.Exec("DELETE FROM " + table)
		require.NoError(t, err)
	}
	return conn
}

func seedBook(t *testing.T, conn *sql.DB, title string, stock int) int64 {
	t.Helper()
	res, err := conn.Exec(
		`INSERT INTO books (title, author, price, stock, created_at) VALUES (?, ?, ?, ?, NOW(6))`,
		title, "author", 100000, stock,
	)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return id
}

func seedMember(t *testing.T, conn *sql.DB, name, email string) int64 {
	t.Helper()
	res, err := conn.Exec(
		`INSERT INTO members (full_name, email, phone, created_at) VALUES (?, ?, NULL, NOW(6))`,
		name, email,
	)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return id
}

func bookStock(t *testing.T, conn *sql.DB, bookID int64) int {
	t.Helper()
	var stock int
	require.NoError(t, conn.QueryRow(`SELECT stock FROM books WHERE book_id = ?`, bookID).Scan(&stock))
	return stock
}

func TestExecBorrow_DecrementsStockPerBook(t *testing.T) {
	conn := openTestDB(t)
	store := NewStore(conn)
	ctx := context.Background()

	memberID := seedMember(t, conn, "Tran Thi B", "b@example.com")
	book1 := seedBook(t, conn, "Clean Architecture", 3)
	book2 := seedBook(t, conn, "The Go Programming Language", 1)

	now := time.Now().UTC().Truncate(time.Second)
	ids, err := store.ExecBorrow(ctx, memberID, []int64{book1, book2}, now, now.AddDate(0, 0, 14), now)

	require.NoError(t, err)
	assert.Len(t, ids, 2)
	assert.Equal(t, 2, bookStock(t, conn, book1))
	assert.Equal(t, 0, bookStock(t, conn, book2))
}

func TestExecBorrow_OutOfStockRollsBackWholeBatch(t *testing.T) {
	conn := openTestDB(t)
	store := NewStore(conn)
	ctx := context.Background()

	memberID := seedMember(t, conn, "Tran Thi B", "b@example.com")
	inStock := seedBook(t, conn, "Available", 2)
	outOfStock := seedBook(t, conn, "Gone", 0)

	now := time.Now().UTC().Truncate(time.Second)
	_, err := store.ExecBorrow(ctx, memberID, []int64{inStock, outOfStock}, now, now.AddDate(0, 0, 14), now)

	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeConflict))

	// 1冊目も差し引かれていないこと
	assert.Equal(t, 2, bookStock(t, conn, inStock))
	var count int
	require.NoError(t, conn.QueryRow(`SELECT COUNT(*) FROM loans`).Scan(&count))
	assert.Zero(t, count)
}

func TestExecBorrow_UnknownBookIsConflict(t *testing.T) {
	conn := openTestDB(t)
	store := NewStore(conn)
	ctx := context.Background()

	memberID := seedMember(t, conn, "Tran Thi B", "b@example.com")
	now := time.Now().UTC().Truncate(time.Second)

	_, err := store.ExecBorrow(ctx, memberID, []int64{999999}, now, now.AddDate(0, 0, 14), now)
	assert.True(t, apperr.IsCode(err, apperr.CodeConflict))
}

func TestExecBorrow_MemberWithOverdueLoanIsRejected(t *testing.T) {
	conn := openTestDB(t)
	store := NewStore(conn)
	ctx := context.Background()

	memberID := seedMember(t, conn, "Le Van C", "c@example.com")
	oldBook := seedBook(t, conn, "Old Loan", 1)
	newBook := seedBook(t, conn, "New Want", 1)

	now := time.Now().UTC().Truncate(time.Second)

	// 期限超過の未返却ローンを先に作る
	past := now.AddDate(0, 0, -20)
	_, err := store.ExecBorrow(ctx, memberID, []int64{oldBook}, past, past.AddDate(0, 0, 14), past)
	require.NoError(t, err)

	_, err = store.ExecBorrow(ctx, memberID, []int64{newBook}, now, now.AddDate(0, 0, 14), now)
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeConflict))
	assert.Equal(t, 1, bookStock(t, conn, newBook))
}

func TestExecReturn_LateReturnChargesPerCalendarDay(t *testing.T) {
	conn := openTestDB(t)
	store := NewStore(conn)
	ctx := context.Background()

	memberID := seedMember(t, conn, "Pham Thi D", "d@example.com")
	bookID := seedBook(t, conn, "Late Book", 1)

	now := time.Now().UTC().Truncate(time.Second)
	borrowAt := now.AddDate(0, 0, -17)
	dueAt := borrowAt.AddDate(0, 0, 14) // 3日前が期限
	ids, err := store.ExecBorrow(ctx, memberID, []int64{bookID}, borrowAt, dueAt, borrowAt)
	require.NoError(t, err)
	require.Len(t, ids, 1)

	out, err := store.ExecReturn(ctx, ids[0], now, 5000)
	require.NoError(t, err)
	assert.False(t, out.AlreadyReturned)
	assert.Equal(t, int64(3*5000), out.Fine)
	assert.Equal(t, 1, bookStock(t, conn, bookID))
}

func TestExecReturn_IsIdempotent(t *testing.T) {
	conn := openTestDB(t)
	store := NewStore(conn)
	ctx := context.Background()

	memberID := seedMember(t, conn, "Pham Thi D", "d@example.com")
	bookID := seedBook(t, conn, "Round Trip", 1)

	now := time.Now().UTC().Truncate(time.Second)
	ids, err := store.ExecBorrow(ctx, memberID, []int64{bookID}, now, now.AddDate(0, 0, 14), now)
	require.NoError(t, err)

	first, err := store.ExecReturn(ctx, ids[0], now, 5000)
	require.NoError(t, err)
	assert.False(t, first.AlreadyReturned)
	assert.Zero(t, first.Fine)

	second, err := store.ExecReturn(ctx, ids[0], now, 5000)
	require.NoError(t, err)
	assert.True(t, second.AlreadyReturned)

	// 在庫が二重に戻っていないこと
	assert.Equal(t, 1, bookStock(t, conn, bookID))
}

func TestExecReturn_UnknownLoanIsNotFound(t *testing.T) {
	conn := openTestDB(t)
	store := NewStore(conn)

	_, err := store.ExecReturn(context.Background(), 424242, time.Now(), 5000)
	assert.True(t, apperr.IsCode(err, apperr.CodeNotFound))
}

func TestExecBorrow_LastCopyGoesToExactlyOneBorrower(t *testing.T) {
	conn := openTestDB(t)
	store := NewStore(conn)
	ctx := context.Background()

	m1 := seedMember(t, conn, "First", "first@example.com")
	m2 := seedMember(t, conn, "Second", "second@example.com")
	bookID := seedBook(t, conn, "Single Copy", 1)

	now := time.Now().UTC().Truncate(time.Second)
	due := now.AddDate(0, 0, 14)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, memberID := range []int64{m1, m2} {
		wg.Add(1)
		go func(i int, memberID int64) {
			defer wg.Done()
			_, errs[i] = store.ExecBorrow(ctx, memberID, []int64{bookID}, now, due, now)
		}(i, memberID)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.True(t, apperr.IsCode(err, apperr.CodeConflict), "got %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 0, bookStock(t, conn, bookID))
}

func TestMarkOverdue_SkipsReturnedLoans(t *testing.T) {
	conn := openTestDB(t)
	store := NewStore(conn)
	ctx := context.Background()

	memberID := seedMember(t, conn, "Hoang Van E", "e@example.com")
	bookID := seedBook(t, conn, "Guarded", 1)

	now := time.Now().UTC().Truncate(time.Second)
	borrowAt := now.AddDate(0, 0, -20)
	ids, err := store.ExecBorrow(ctx, memberID, []int64{bookID}, borrowAt, borrowAt.AddDate(0, 0, 14), borrowAt)
	require.NoError(t, err)

	candidates, err := store.ListOverdueCandidates(ctx, now)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, ids[0], candidates[0].LoanID)

	// 返却済みにした後は対象外
	_, err = store.ExecReturn(ctx, ids[0], now, 5000)
	require.NoError(t, err)

	marked, err := store.MarkOverdue(ctx, ids[0], 5000)
	require.NoError(t, err)
	assert.False(t, marked, "a completed return must stay authoritative")
}
