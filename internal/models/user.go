package models

import "time"

// User is the slice of the account record this service reads and
// mutates. The row itself is owned by the account subsystem; only the
// storage counters are touched here, always through the quota ledger.
type User struct {
	ID           string    `json:"id"`
	StorageUsed  int64     `json:"storage_used"`
	StorageLimit int64     `json:"storage_limit"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
