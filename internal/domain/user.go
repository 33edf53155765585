package domain

import "time"

// User is a chat user known to the bot. Language is an opaque two-letter
// code resolved by the delivery worker when rendering notifications.
type User struct {
	ID        int64
	Language  string
	CreatedAt time.Time
}
