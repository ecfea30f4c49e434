package catalog

import (
	"database/sql"
	"time"
)

// Book は books テーブルの1行を表す。
// stock の増減は loans 側がトランザクション内で排他的に行う。
type Book struct {
	BookID    int64
	Title     string
	Author    sql.NullString
	Price     int64
	Stock     int
	CreatedAt time.Time
}

// Member は members テーブルの1行を表す
type Member struct {
	MemberID  int64
	FullName  string
	Email     string
	Phone     sql.NullString
	CreatedAt time.Time
}
