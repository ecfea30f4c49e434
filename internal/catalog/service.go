package catalog

import (
	"context"
	"database/sql"
	"strings"

	"LIBRA-backend/internal/platform/apperr"
)

type Service struct {
	store *Store
}

func NewService(db *sql.DB) *Service {
	return &Service{store: NewStore(db)}
}

func (s *Service) CreateBook(ctx context.Context, req CreateBookRequest) (*BookResponse, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, apperr.InvalidArgument("title is required")
	}
	if req.Stock < 0 {
		return nil, apperr.InvalidArgument("stock must be >= 0")
	}
	if req.Price < 0 {
		return nil, apperr.InvalidArgument("price must be >= 0")
	}

	b := &Book{
		Title: strings.TrimSpace(req.Title),
		Price: req.Price,
		Stock: req.Stock,
	}
	if req.Author != nil && *req.Author != "" {
		b.Author = sql.NullString{String: *req.Author, Valid: true}
	}

	if err := s.store.InsertBook(ctx, b); err != nil {
		return nil, err
	}
	resp := buildBookResponse(b)
	return &resp, nil
}

func (s *Service) GetBook(ctx context.Context, bookID int64) (*BookResponse, error) {
	b, err := s.store.GetBook(ctx, bookID)
	if err != nil {
		return nil, err
	}
	resp := buildBookResponse(b)
	return &resp, nil
}

func (s *Service) ListBooks(ctx context.Context, q string, limit, offset int) ([]BookResponse, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	books, err := s.store.ListBooks(ctx, q, limit, offset)
	if err != nil {
		return nil, err
	}
	out := make([]BookResponse, 0, len(books))
	for i := range books {
		out = append(out, buildBookResponse(&books[i]))
	}
	return out, nil
}

func (s *Service) CreateMember(ctx context.Context, req CreateMemberRequest) (*MemberResponse, error) {
	if strings.TrimSpace(req.FullName) == "" {
		return nil, apperr.InvalidArgument("full_name is required")
	}
	if strings.TrimSpace(req.Email) == "" {
		return nil, apperr.InvalidArgument("email is required")
	}

	m := &Member{
		FullName: strings.TrimSpace(req.FullName),
		Email:    strings.TrimSpace(req.Email),
	}
	if req.Phone != nil && *req.Phone != "" {
		m.Phone = sql.NullString{String: *req.Phone, Valid: true}
	}

	if err := s.store.InsertMember(ctx, m); err != nil {
		return nil, err
	}
	resp := buildMemberResponse(m)
	return &resp, nil
}

func (s *Service) GetMember(ctx context.Context, memberID int64) (*MemberResponse, error) {
	m, err := s.store.GetMember(ctx, memberID)
	if err != nil {
		return nil, err
	}
	resp := buildMemberResponse(m)
	return &resp, nil
}

func (s *Service) ListMembers(ctx context.Context, q string, limit, offset int) ([]MemberResponse, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	members, err := s.store.ListMembers(ctx, q, limit, offset)
	if err != nil {
		return nil, err
	}
	out := make([]MemberResponse, 0, len(members))
	for i := range members {
		out = append(out, buildMemberResponse(&members[i]))
	}
	return out, nil
}

func buildBookResponse(b *Book) BookResponse {
	resp := BookResponse{
		BookID:    b.BookID,
		Title:     b.Title,
		Price:     b.Price,
		Stock:     b.Stock,
		CreatedAt: b.CreatedAt,
	}
	if b.Author.Valid {
		v := b.Author.String
		resp.Author = &v
	}
	return resp
}

func buildMemberResponse(m *Member) MemberResponse {
	resp := MemberResponse{
		MemberID:  m.MemberID,
		FullName:  m.FullName,
		Email:     m.Email,
		CreatedAt: m.CreatedAt,
	}
	if m.Phone.Valid {
		v := m.Phone.String
		resp.Phone = &v
	}
	return resp
}
