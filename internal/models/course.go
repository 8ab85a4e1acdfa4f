package models

import "time"

// Course represents a course catalog entry. The catalog itself is managed
// elsewhere; this service only reads it for validation and joins.
type Course struct {
	ID         string    `db:"id" json:"id"`
	Code       string    `db:"code" json:"code"`
	Name       string    `db:"name" json:"name"`
	Department string    `db:"department" json:"department"`
	Credits    int       `db:"credits" json:"credits"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
