package service

import "time"

// Clock reconciliation: the server is the single time authority. Clients
// send their local clock, learn the offset, and recompute countdowns from
// the broadcast end time; the server never persists a stored countdown.

// ClockOffset returns the skew between a client clock and the server clock
// at receipt time. Adding the offset to a client timestamp yields server
// time.
func ClockOffset(clientSentAt, serverReceivedAt time.Time) time.Duration {
	return serverReceivedAt.Sub(clientSentAt)
}

// RemainingSeconds computes a student's effective remaining time:
// max(0, (end - now) - penalty). Each student subtracts only their own
// accumulated penalty, independent of other students in the application.
func RemainingSeconds(end, now time.Time, penalty time.Duration) int64 {
	remaining := end.Sub(now) - penalty
	if remaining < 0 {
		return 0
	}
	return int64(remaining / time.Second)
}
