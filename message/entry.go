package message

import "encoding/gob"

func init() {
	gob.Register(CommandPayload{})
	gob.Register(ConfigurationPayload{})
	gob.Register(OpenSessionPayload{})
	gob.Register(CloseSessionPayload{})
	gob.Register(KeepAlivePayload{})
	gob.Register(QueryPayload{})
	gob.Register(MetadataPayload{})
	gob.Register(InitializePayload{})
}

// EntryKind tags the payload carried by a LogEntry; every entry the state
// machine manager applies is one of these kinds.
type EntryKind int

const (
	KindInitialize EntryKind = iota
	KindConfiguration
	KindCommand
	KindOpenSession
	KindCloseSession
	KindKeepAlive
	KindQuery
	KindMetadata
)

func (k EntryKind) String() string {
	switch k {
	case KindInitialize:
		return "INITIALIZE"
	case KindConfiguration:
		return "CONFIGURATION"
	case KindCommand:
		return "COMMAND"
	case KindOpenSession:
		return "OPEN_SESSION"
	case KindCloseSession:
		return "CLOSE_SESSION"
	case KindKeepAlive:
		return "KEEP_ALIVE"
	case KindQuery:
		return "QUERY"
	case KindMetadata:
		return "METADATA"
	default:
		return "UNKNOWN"
	}
}

// Entry is a single append-only log record. Once committed it is never
// rewritten; a nil Payload marks a compacted slot skipped by the appender.
type Entry struct {
	Index   Index
	Term    Term
	Kind    EntryKind
	Payload any
}

// InitializePayload is appended by a new leader before accepting writes, to
// obtain a commit proof for its term.
type InitializePayload struct{}

// ConfigurationPayload carries a full member set snapshot for a
// configuration-change entry.
type ConfigurationPayload struct {
	Members []MemberSpec
	Time    int64
}

// MemberSpec is the wire shape of a cluster member.
type MemberSpec struct {
	ID      MemberID
	Role    MemberRole
	Address string
}

// MemberRole is one of the four roles a Member can hold.
type MemberRole int

const (
	RoleActive MemberRole = iota
	RolePassive
	RoleReserve
	RoleInactive
)

func (r MemberRole) String() string {
	switch r {
	case RoleActive:
		return "ACTIVE"
	case RolePassive:
		return "PASSIVE"
	case RoleReserve:
		return "RESERVE"
	case RoleInactive:
		return "INACTIVE"
	default:
		return "UNKNOWN"
	}
}

// CommandPayload is a linearizable write submitted within a session.
type CommandPayload struct {
	Session     SessionID
	Sequence    uint64
	Command     any
	AckSequence uint64
}

// OpenSessionPayload registers a new session against a named state machine.
type OpenSessionPayload struct {
	MemberOfOrigin MemberID
	Name           string
	StateMachine   string
	Timeout        int64 // nanoseconds
}

// CloseSessionPayload terminates a session.
type CloseSessionPayload struct {
	Session SessionID
}

// KeepAlivePayload refreshes a session and acknowledges delivered
// results/events.
type KeepAlivePayload struct {
	Session          SessionID
	CommandAckSeq    uint64
	EventAckIndex    Index
}

// QueryPayload is recorded in the log only for STRICT (linearizable) reads;
// other consistency modes are answered without an append.
type QueryPayload struct {
	Session     SessionID
	MinSequence uint64
	MinIndex    Index
	Consistency Consistency
	Query       any
}

// MetadataPayload requests a snapshot of cluster/session metadata.
type MetadataPayload struct{}

// Consistency selects how a Query is served.
type Consistency int

const (
	ConsistencyStrict Consistency = iota
	ConsistencyLease
	ConsistencyEventual
)

func (c Consistency) String() string {
	switch c {
	case ConsistencyStrict:
		return "STRICT"
	case ConsistencyLease:
		return "LEASE"
	case ConsistencyEventual:
		return "EVENTUAL"
	default:
		return "UNKNOWN"
	}
}
