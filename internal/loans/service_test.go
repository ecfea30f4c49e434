package loans

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"LIBRA-backend/internal/catalog"
	"LIBRA-backend/internal/platform/apperr"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type fakeDirectory struct {
	members map[int64]*catalog.Member
}

func (d *fakeDirectory) GetMember(_ context.Context, id int64) (*catalog.Member, error) {
	if m, ok := d.members[id]; ok {
		return m, nil
	}
	return nil, apperr.NotFound("member not found")
}

func newTestService(dir MemberDirectory) *Service {
	return &Service{
		members:         dir,
		clock:           fixedClock{t: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)},
		log:             zap.NewNop(),
		finePerDay:      5000,
		defaultLoanDays: 14,
	}
}

func strPtr(s string) *string { return &s }

func TestBorrow_RejectsInvalidRequests(t *testing.T) {
	svc := newTestService(&fakeDirectory{members: map[int64]*catalog.Member{
		1: {MemberID: 1, FullName: "Nguyen Van A", Email: "a@example.com"},
	}})
	ctx := context.Background()

	cases := []struct {
		name string
		req  BorrowRequest
	}{
		{"missing member", BorrowRequest{BookIDs: []int64{1}}},
		{"no books", BorrowRequest{MemberID: 1}},
		{"non positive book id", BorrowRequest{MemberID: 1, BookIDs: []int64{0}}},
		{"duplicate book ids", BorrowRequest{MemberID: 1, BookIDs: []int64{2, 2}}},
		{"bad borrow date", BorrowRequest{MemberID: 1, BookIDs: []int64{2}, BorrowDate: strPtr("10/03/2026")}},
		{"bad due date", BorrowRequest{MemberID: 1, BookIDs: []int64{2}, DueDate: strPtr("soon")}},
		{"due before borrow", BorrowRequest{MemberID: 1, BookIDs: []int64{2}, BorrowDate: strPtr("2026-03-10"), DueDate: strPtr("2026-03-09")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Borrow(ctx, tc.req)
			require.Error(t, err)
			assert.True(t, apperr.IsCode(err, apperr.CodeInvalidArgument), "got %v", err)
		})
	}
}

func TestBorrow_UnknownMemberIsInvalidArgument(t *testing.T) {
	svc := newTestService(&fakeDirectory{members: map[int64]*catalog.Member{}})

	_, err := svc.Borrow(context.Background(), BorrowRequest{MemberID: 42, BookIDs: []int64{1}})

	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeInvalidArgument))
}

func TestReturn_RejectsInvalidRequests(t *testing.T) {
	svc := newTestService(&fakeDirectory{})
	ctx := context.Background()

	err := svc.Return(ctx, 0, ReturnRequest{})
	assert.True(t, apperr.IsCode(err, apperr.CodeInvalidArgument))

	err = svc.Return(ctx, 7, ReturnRequest{ReturnDate: strPtr("not-a-date")})
	assert.True(t, apperr.IsCode(err, apperr.CodeInvalidArgument))
}

func TestList_RejectsUnknownStatus(t *testing.T) {
	svc := newTestService(&fakeDirectory{})

	_, err := svc.List(context.Background(), "", "LOST", 0, 10)

	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeInvalidArgument))
}

func TestParseStatus(t *testing.T) {
	st, err := ParseStatus("BORROWED")
	require.NoError(t, err)
	assert.Equal(t, StatusBorrowed, st)

	st, err = ParseStatus(" returned ")
	require.NoError(t, err)
	assert.Equal(t, StatusReturned, st)

	_, err = ParseStatus("LOST")
	assert.True(t, apperr.IsCode(err, apperr.CodeInvalidArgument))
}
