package model

import "time"

// SlotLock is an advisory lock document serializing all reservation writes
// that touch a single calendar day. The unique _id makes the second writer
// fail at insert time instead of silently double-booking; a TTL index on
// expires_at reaps locks orphaned by a crash.
type SlotLock struct {
	ID        string    `bson:"_id" json:"id"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
