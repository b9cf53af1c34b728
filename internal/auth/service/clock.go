package service

import "time"

// ClientInfo is the request metadata recorded on sessions and audit entries.
type ClientInfo struct {
	IPAddress string
	UserAgent string
}

func nowFrom(fn func() time.Time) time.Time {
	if fn == nil {
		return time.Now().UTC()
	}
	return fn().UTC()
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
