// Package mail talks to outbound (SMTP) and inbound (IMAP, POP3) mail servers.
package mail

import (
	"errors"
	"time"
)

const (
	defaultDialTimeout = 15 * time.Second
	defaultRecentLimit = 5

	dateLayout = "2006-01-02 15:04:05"

	noSender  = "No Sender"
	noSubject = "No Subject"
	noDate    = "No Date"
)

// ErrNotConfigured is returned when the server host is missing from configuration.
var ErrNotConfigured = errors.New("mail server is not configured")

func dialTimeout(d time.Duration) time.Duration {
	if d <= 0 {
		return defaultDialTimeout
	}
	return d
}

func recentWindow(count, limit int) (int, int) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	if count <= 0 {
		return 0, 0
	}
	start := count - limit + 1
	if start < 1 {
		start = 1
	}
	return start, count
}
