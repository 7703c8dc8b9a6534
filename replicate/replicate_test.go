package replicate

import (
	"sync"

	"github.com/xmh1011/go-raft/message"
)

// fakeView is a LeaderView stub. Post delivers the posted function over a
// channel instead of running it inline, so tests can synchronize with the
// goroutine Tick/Start spawn for the actual RPC instead of racing it.
type fakeView struct {
	mu     sync.Mutex
	term   message.Term
	commit message.Index
	id     message.MemberID

	posted chan func()

	steppedDown bool
	stepTerm    message.Term
}

func newFakeView(id message.MemberID, term message.Term) *fakeView {
	return &fakeView{id: id, term: term, posted: make(chan func(), 8)}
}

func (v *fakeView) CurrentTerm() message.Term {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.term
}

func (v *fakeView) CommitIndex() message.Index {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.commit
}

func (v *fakeView) ID() message.MemberID { return v.id }

func (v *fakeView) Post(fn func()) { v.posted <- fn }

func (v *fakeView) StepDown(term message.Term) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.steppedDown = true
	v.stepTerm = term
	v.term = term
}

// fakeTransport is a transport.Transport stub driven by test-supplied
// Append/Install functions; every other method is unused by replicate.
type fakeTransport struct {
	appendFn  func(addr string, req *message.AppendRequest) (*message.AppendResponse, error)
	installFn func(addr string, req *message.InstallRequest) (*message.InstallResponse, error)
}

func (f *fakeTransport) Vote(string, *message.VoteRequest) (*message.VoteResponse, error) {
	return &message.VoteResponse{Status: message.OK()}, nil
}
func (f *fakeTransport) Poll(string, *message.PollRequest) (*message.PollResponse, error) {
	return &message.PollResponse{Status: message.OK()}, nil
}
func (f *fakeTransport) Append(addr string, req *message.AppendRequest) (*message.AppendResponse, error) {
	if f.appendFn != nil {
		return f.appendFn(addr, req)
	}
	return &message.AppendResponse{Status: message.OK(), Succeeded: true}, nil
}
func (f *fakeTransport) Install(addr string, req *message.InstallRequest) (*message.InstallResponse, error) {
	if f.installFn != nil {
		return f.installFn(addr, req)
	}
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
