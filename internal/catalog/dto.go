package catalog

import "time"

type CreateBookRequest struct {
	Title  string  `json:"title" binding:"required"`
	Author *string `json:"author,omitempty"`
	Price  int64   `json:"price"`
	Stock  int     `json:"stock"`
}

type BookResponse struct {
	BookID    int64     `json:"book_id"`
	Title     string    `json:"title"`
	Author    *string   `json:"author,omitempty"`
	Price     int64     `json:"price"`
	Stock     int       `json:"stock"`
	CreatedAt time.Time `json:"created_at"`
}

type CreateMemberRequest struct {
	FullName string  `json:"full_name" binding:"required"`
	Email    string  `json:"email" binding:"required"`
	Phone    *string `json:"phone,omitempty"`
}

type MemberResponse struct {
	MemberID  int64     `json:"member_id"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
	Phone     *string   `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
