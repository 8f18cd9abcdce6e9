package db

import "time"

// Session is one row of the sessions table: an encoded session payload keyed
// by the token carried in the browser cookie.
type Session struct {
	Token  string
	Data   []byte
	Expiry time.Time
}
