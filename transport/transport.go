// Package transport defines the wire-independent contract every role and
// state-machine handler is driven through. Three implementations exist:
// transport/tcp (net/rpc + gob), transport/grpc (grpc framing carrying
// gob-encoded message structs), and transport/inmemory (direct dispatch, used by tests).
package transport

import "github.com/xmh1011/go-raft/message"

// Transport sends RPCs to a named peer address and blocks for the response.
type Transport interface {
	Vote(addr string, req *message.VoteRequest) (*message.VoteResponse, error)
	Poll(addr string, req *message.PollRequest) (*message.PollResponse, error)
	Append(addr string, req *message.AppendRequest) (*message.AppendResponse, error)
	Install(addr string, req *message.InstallRequest) (*message.InstallResponse, error)
	Configure(addr string, req *message.ConfigureRequest) (*message.ConfigureResponse, error)

	Join(addr string, req *message.JoinRequest) (*message.JoinResponse, error)
	Leave(addr string, req *message.LeaveRequest) (*message.LeaveResponse, error)
	Reconfigure(addr string, req *message.ReconfigureRequest) (*message.ReconfigureResponse, error)

	OpenSession(addr string, req *message.OpenSessionRequest) (*message.OpenSessionResponse, error)
	CloseSession(addr string, req *message.CloseSessionRequest) (*message.CloseSessionResponse, error)
	KeepAlive(addr string, req *message.KeepAliveRequest) (*message.KeepAliveResponse, error)
	Command(addr string, req *message.CommandRequest) (*message.CommandResponse, error)
	Query(addr string, req *message.QueryRequest) (*message.QueryResponse, error)
	Metadata(addr string, req *message.MetadataRequest) (*message.MetadataResponse, error)

	Close() error
}

// ProtocolHandler answers the RPCs a role state machine owns.
type ProtocolHandler interface {
	HandleVote(*message.VoteRequest) (*message.VoteResponse, error)
	HandlePoll(*message.PollRequest) (*message.PollResponse, error)
	HandleAppend(*message.AppendRequest) (*message.AppendResponse, error)
	HandleInstall(*message.InstallRequest) (*message.InstallResponse, error)
	HandleConfigure(*message.ConfigureRequest) (*message.ConfigureResponse, error)
	HandleJoin(*message.JoinRequest) (*message.JoinResponse, error)
	HandleLeave(*message.LeaveRequest) (*message.LeaveResponse, error)
	HandleReconfigure(*message.ReconfigureRequest) (*message.ReconfigureResponse, error)
}

// SessionHandler answers the RPCs the state-machine manager owns.
type SessionHandler interface {
	HandleOpenSession(*message.OpenSessionRequest) (*message.OpenSessionResponse, error)
	HandleCloseSession(*message.CloseSessionRequest) (*message.CloseSessionResponse, error)
	HandleKeepAlive(*message.KeepAliveRequest) (*message.KeepAliveResponse, error)
	HandleCommand(*message.CommandRequest) (*message.CommandResponse, error)
	HandleQuery(*message.QueryRequest) (*message.QueryResponse, error)
	HandleMetadata(*message.MetadataRequest) (*message.MetadataResponse, error)
}

// Handler is the union a server registers with a transport listener.
type Handler interface {
	ProtocolHandler
	SessionHandler
}
