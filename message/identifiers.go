// Package message defines the wire value types exchanged between servers and
// between servers and clients: identifiers, log entries, and every
// request/response pair the protocol and client-session RPCs use.
package message

// MemberID identifies a cluster member. Members keep the same ID across
// role changes (RESERVE -> PASSIVE -> ACTIVE) and restarts.
type MemberID uint64

// SessionID identifies a client session. It equals the log index at which
// the session's open-session entry was applied.
type SessionID uint64

// Term is a monotonically increasing election epoch.
type Term uint64

// Index is a 1-based position in the replicated log.
type Index uint64

// NoLeader is the zero MemberID, used as a sentinel when no leader is known.
const NoLeader MemberID = 0
