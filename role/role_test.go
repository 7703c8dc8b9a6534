package role

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xmh1011/go-raft/cluster"
	"github.com/xmh1011/go-raft/logging"
	"github.com/xmh1011/go-raft/message"
	"github.com/xmh1011/go-raft/server"
	"github.com/xmh1011/go-raft/storage/memstore"
)

// newRoleContext builds a server.Context with id as a voting member of
// members (id included automatically), mirroring server package's own test
// helper since role needs the same shape plus a transport and a base.
func newRoleContext(t *testing.T, id message.MemberID, members ...message.MemberID) *server.Context {
	t.Helper()
	all := append([]message.MemberID{id}, members...)
	var specs []message.MemberSpec
	for _, m := range all {
		specs = append(specs, message.MemberSpec{ID: m, Role: message.RoleActive, Address: address(m)})
	}
	cfg := cluster.NewState(cluster.FromSpecs(0, 0, specs))
	ctx := server.New(id, memstore.NewLog(), memstore.NewMeta(), memstore.NewSnapshots(), cfg, logging.Discard())
	require.NoError(t, ctx.Restore())
	return ctx
}

func address(id message.MemberID) string {
	switch id {
	case 1:
		return "node-1"
	case 2:
		return "node-2"
	case 3:
		return "node-3"
	default:
		return "node-?"
	}
}

// fakeTransport is a transport.Transport stub whose Vote/Poll/Append
// responses are driven by test-supplied functions; every other method
// returns a zero response, since most role tests only exercise one RPC
// kind at a time.
type fakeTransport struct {
	voteFn   func(addr string, req *message.VoteRequest) (*message.VoteResponse, error)
	pollFn   func(addr string, req *message.PollRequest) (*message.PollResponse, error)
	appendFn func(addr string, req *message.AppendRequest) (*message.AppendResponse, error)
}

func (f *fakeTransport) Vote(addr string, req *message.VoteRequest) (*message.VoteResponse, error) {
	if f.voteFn != nil {
		return f.voteFn(addr, req)
	}
	return &message.VoteResponse{Status: message.OK()}, nil
}

func (f *fakeTransport) Poll(addr string, req *message.PollRequest) (*message.PollResponse, error) {
	if f.pollFn != nil {
		return f.pollFn(addr, req)
	}
	return &message.PollResponse{Status: message.OK()}, nil
}

func (f *fakeTransport) Append(addr string, req *message.AppendRequest) (*message.AppendResponse, error) {
	if f.appendFn != nil {
		return f.appendFn(addr, req)
	}
	return &message.AppendResponse{Status: message.OK()}, nil
}

func (f *fakeTransport) Install(string, *message.InstallRequest) (*message.InstallResponse, error) {
	return &message.InstallResponse{Status: message.OK()}, nil
}
func (f *fakeTransport) Configure(string, *message.ConfigureRequest) (*message.ConfigureResponse, error) {
	return &message.ConfigureResponse{Status: message.OK()}, nil
}
func (f *fakeTransport) Join(string, *message.JoinRequest) (*message.JoinResponse, error) {
	return &message.JoinResponse{Status: message.OK()}, nil
}
func (f *fakeTransport) Leave(string, *message.LeaveRequest) (*message.LeaveResponse, error) {
	return &message.LeaveResponse{Status: message.OK()}, nil
}
func (f *fakeTransport) Reconfigure(string, *message.ReconfigureRequest) (*message.ReconfigureResponse, error) {
	return &message.ReconfigureResponse{Status: message.OK()}, nil
}
func (f *fakeTransport) OpenSession(string, *message.OpenSessionRequest) (*message.OpenSessionResponse, error) {
	return &message.OpenSessionResponse{Status: message.OK()}, nil
}
func (f *fakeTransport) CloseSession(string, *message.CloseSessionRequest) (*message.CloseSessionResponse, error) {
	return &message.CloseSessionResponse{Status: message.OK()}, nil
}
func (f *fakeTransport) KeepAlive(string, *message.KeepAliveRequest) (*message.KeepAliveResponse, error) {
	return &message.KeepAliveResponse{Status: message.OK()}, nil
}
func (f *fakeTransport) Command(string, *message.CommandRequest) (*message.CommandResponse, error) {
	return &message.CommandResponse{Status: message.OK()}, nil
}
func (f *fakeTransport) Query(string, *message.QueryRequest) (*message.QueryResponse, error) {
	return &message.QueryResponse{Status: message.OK()}, nil
}
func (f *fakeTransport) Metadata(string, *message.MetadataRequest) (*message.MetadataResponse, error) {
	return &message.MetadataResponse{Status: message.OK()}, nil
}
func (f *fakeTransport) Close() error { return nil }

// fakeMembership is a membership collaborator stub returning canned
// responses, standing in for membership.Coordinator in Base tests.
type fakeMembership struct {
	joinResp        *message.JoinResponse
	leaveResp       *message.LeaveResponse
	reconfigureResp *message.ReconfigureResponse
}

func (f *fakeMembership) HandleJoin(*message.JoinRequest) (*message.JoinResponse, error) {
	if f.joinResp != nil {
		return f.joinResp, nil
	}
	return &message.JoinResponse{Status: message.OK()}, nil
}
func (f *fakeMembership) HandleLeave(*message.LeaveRequest) (*message.LeaveResponse, error) {
	if f.leaveResp != nil {
		return f.leaveResp, nil
	}
	return &message.LeaveResponse{Status: message.OK()}, nil
}
func (f *fakeMembership) HandleReconfigure(*message.ReconfigureRequest) (*message.ReconfigureResponse, error) {
	if f.reconfigureResp != nil {
		return f.reconfigureResp, nil
	}
	return &message.ReconfigureResponse{Status: message.OK()}, nil
}

// fakeStateMachine is a statemachine collaborator stub recording whether
// InstallSnapshot was called, standing in for statemachine.Manager.
type fakeStateMachine struct {
	installed []byte
	err       error
}

func (f *fakeStateMachine) InstallSnapshot(data []byte) error {
	f.installed = data
	return f.err
}
