package otp

import "time"

type Purpose string

const (
	PurposePasswordReset Purpose = "password_reset"
	PurposeMobileLogin   Purpose = "mobile_login"
)

func (p Purpose) Valid() bool {
	return p == PurposePasswordReset || p == PurposeMobileLogin
}

// Notification is handed to the notification service, which owns delivery
// by email or SMS.
type Notification struct {
	Purpose   Purpose   `json:"purpose"`
	Identity  string    `json:"identity"`
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
}
