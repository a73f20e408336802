package models

import "time"

// DefaultDeviceInfo is stored when the caller does not describe the device
const DefaultDeviceInfo = "Unknown Device"

// Session is the metadata kept against an opaque session id issued by the surrounding web app.
type Session struct {
	ID            string    `db:"id" json:"id"`
	UserID        string    `db:"user_id" json:"user_id"`
	DeviceInfo    string    `db:"device_info" json:"device_info"`
	ClientAddress string    `db:"client_address" json:"client_address"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	LastActive    time.Time `db:"last_active" json:"last_active"`
}

// IdleFor returns how long the session has gone without activity at now.
func (s *Session) IdleFor(now time.Time) time.Duration {
	return now.Sub(s.LastActive)
}
