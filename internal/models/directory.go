package models

import "time"

// Student is a directory record, read-only for this service.
type Student struct {
	ID            string    `db:"id" json:"id"`
	NIS           string    `db:"nis" json:"nis"`
	FullName      string    `db:"full_name" json:"full_name"`
	ClassID       *string   `db:"class_id" json:"class_id,omitempty"`
	ClassName     *string   `db:"class_name" json:"class_name,omitempty"`
	GuardianPhone string    `db:"guardian_phone" json:"guardian_phone"`
	Active        bool      `db:"active" json:"active"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// Employee is a directory record, read-only for this service.
type Employee struct {
	ID         string    `db:"id" json:"id"`
	NIP        string    `db:"nip" json:"nip"`
	FullName   string    `db:"full_name" json:"full_name"`
	Department string    `db:"department" json:"department"`
	Phone      string    `db:"phone" json:"phone"`
	Active     bool      `db:"active" json:"active"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
