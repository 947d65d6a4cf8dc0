package models

import "time"

// College is the tenant boundary. Every other entity carries a college_id and
// no query may cross it.
type College struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	City      string    `db:"city" json:"city"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
