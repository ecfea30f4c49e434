package catalog

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"LIBRA-backend/internal/platform/apperr"
)

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// ---- books ----

func (s *Store) InsertBook(ctx context.Context, b *Book) error {
	const q = `
INSERT INTO books (title, author, price, stock, created_at)
VALUES (?, ?, ?, ?, NOW(6))`
	res, err := s.db.ExecContext(ctx, q, b.Title, nullStrOrNil(b.Author), b.Price, b.Stock)
	if err != nil {
		return err
	}
	id, _ := res.LastInsertId()
	b.BookID = id
	return nil
}

func (s *Store) GetBook(ctx context.Context, bookID int64) (*Book, error) {
	const q = `
SELECT book_id, title, author, price, stock, created_at
FROM books WHERE book_id = ?`
	var b Book
	err := s.db.QueryRowContext(ctx, q, bookID).Scan(
		&b.BookID, &b.Title, &b.Author, &b.Price, &b.Stock, &b.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("book not found")
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *Store) ListBooks(ctx context.Context, q string, limit, offset int) ([]Book, error) {
	sb := strings.Builder{}
	sb.WriteString(`
SELECT book_id, title, author, price, stock, created_at
FROM books WHERE 1=1`)
	args := []any{}
	if q != "" {
		sb.WriteString(` AND (title LIKE ? OR author LIKE ?)`)
		kw := "%" + strings.TrimSpace(q) + "%"
		args = append(args, kw, kw)
	}
	sb.WriteString(` ORDER BY book_id ASC LIMIT ? OFFSET ?`)
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Book
	for rows.Next() {
		var b Book
		if err := rows.Scan(&b.BookID, &b.Title, &b.Author, &b.Price, &b.Stock, &b.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// ---- members ----

func (s *Store) InsertMember(ctx context.Context, m *Member) error {
	const q = `
INSERT INTO members (full_name, email, phone, created_at)
VALUES (?, ?, ?, NOW(6))`
	res, err := s.db.ExecContext(ctx, q, m.FullName, m.Email, nullStrOrNil(m.Phone))
	if err != nil {
		return err
	}
	id, _ := res.LastInsertId()
	m.MemberID = id
	return nil
}

func (s *Store) GetMember(ctx context.Context, memberID int64) (*Member, error) {
	const q = `
SELECT member_id, full_name, email, phone, created_at
FROM members WHERE member_id = ?`
	var m Member
	err := s.db.QueryRowContext(ctx, q, memberID).Scan(
		&m.MemberID, &m.FullName, &m.Email, &m.Phone, &m.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("member not found")
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *Store) ListMembers(ctx context.Context, q string, limit, offset int) ([]Member, error) {
	sb := strings.Builder{}
	sb.WriteString(`
SELECT member_id, full_name, email, phone, created_at
FROM members WHERE 1=1`)
	args := []any{}
	if q != "" {
		sb.WriteString(` AND (full_name LIKE ? OR email LIKE ?)`)
		kw := "%" + strings.TrimSpace(q) + "%"
		args = append(args, kw, kw)
	}
	sb.WriteString(` ORDER BY member_id ASC LIMIT ? OFFSET ?`)
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.MemberID, &m.FullName, &m.Email, &m.Phone, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func nullStrOrNil(ns sql.NullString) any {
	if ns.Valid {
		return ns.String
	}
	return nil
}
