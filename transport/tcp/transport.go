// Package tcp implements transport.Transport and its matching server-side
// listener over plain TCP using net/rpc and gob encoding, the same wire
// format the teacher's transport used, generalized from its four RPC
// methods to the full Vote/Poll/Append/Install/Configure/Join/Leave/
// Reconfigure/OpenSession/CloseSession/KeepAlive/Command/Query/Metadata
// surface.
package tcp

import (
	"errors"
	"net"
	"net/rpc"
	"sync"
	"time"

	"github.com/xmh1011/go-raft/logging"
	"github.com/xmh1011/go-raft/message"
	"github.com/xmh1011/go-raft/transport"
)

// DialTimeout bounds how long connecting to a peer may take before giving
// up; a hung dial would otherwise stall the caller's execution context.
const DialTimeout = 5 * time.Second

// service adapts a transport.Handler to net/rpc's required method shape,
// func(args T, reply *R) error, one pass-through per handler method.
type service struct {
	h transport.Handler
}

func (s *service) Vote(req message.VoteRequest, resp *message.VoteResponse) error {
	r, err := s.h.HandleVote(&req)
	if err != nil {
		return err
	}
	*resp = *r
	return nil
}

func (s *service) Poll(req message.PollRequest, resp *message.PollResponse) error {
	r, err := s.h.HandlePoll(&req)
	if err != nil {
		return err
	}
	*resp = *r
	return nil
}

func (s *service) Append(req message.AppendRequest, resp *message.AppendResponse) error {
	r, err := s.h.HandleAppend(&req)
	if err != nil {
		return err
	}
	*resp = *r
	return nil
}

func (s *service) Install(req message.InstallRequest, resp *message.InstallResponse) error {
	r, err := s.h.HandleInstall(&req)
	if err != nil {
		return err
	}
	*resp = *r
	return nil
}

func (s *service) Configure(req message.ConfigureRequest, resp *message.ConfigureResponse) error {
	r, err := s.h.HandleConfigure(&req)
	if err != nil {
		return err
	}
	*resp = *r
	return nil
}

func (s *service) Join(req message.JoinRequest, resp *message.JoinResponse) error {
	r, err := s.h.HandleJoin(&req)
	if err != nil {
		return err
	}
	*resp = *r
	return nil
}

func (s *service) Leave(req message.LeaveRequest, resp *message.LeaveResponse) error {
	r, err := s.h.HandleLeave(&req)
	if err != nil {
		return err
	}
	*resp = *r
	return nil
}

func (s *service) Reconfigure(req message.ReconfigureRequest, resp *message.ReconfigureResponse) error {
	r, err := s.h.HandleReconfigure(&req)
	if err != nil {
		return err
	}
	*resp = *r
	return nil
}

func (s *service) OpenSession(req message.OpenSessionRequest, resp *message.OpenSessionResponse) error {
	r, err := s.h.HandleOpenSession(&req)
	if err != nil {
		return err
	}
	*resp = *r
	return nil
}

func (s *service) CloseSession(req message.CloseSessionRequest, resp *message.CloseSessionResponse) error {
	r, err := s.h.HandleCloseSession(&req)
	if err != nil {
		return err
	}
	*resp = *r
	return nil
}

func (s *service) KeepAlive(req message.KeepAliveRequest, resp *message.KeepAliveResponse) error {
	r, err := s.h.HandleKeepAlive(&req)
	if err != nil {
		return err
	}
	*resp = *r
	return nil
}

func (s *service) Command(req message.CommandRequest, resp *message.CommandResponse) error {
	r, err := s.h.HandleCommand(&req)
	if err != nil {
		return err
	}
	*resp = *r
	return nil
}

func (s *service) Query(req message.QueryRequest, resp *message.QueryResponse) error {
	r, err := s.h.HandleQuery(&req)
	if err != nil {
		return err
	}
	*resp = *r
	return nil
}

func (s *service) Metadata(req message.MetadataRequest, resp *message.MetadataResponse) error {
	r, err := s.h.HandleMetadata(&req)
	if err != nil {
		return err
	}
	*resp = *r
	return nil
}

// Transport implements transport.Transport over net/rpc, caching one
// *rpc.Client per distinct peer address and serving its own local handler
// to whoever dials in.
type Transport struct {
	localAddr string
	listener  net.Listener
	server    *rpc.Server
	sink      logging.Sink

	mu    sync.RWMutex
	peers map[string]*rpc.Client
}

// New starts listening on localAddr and registers handler to answer
// whatever arrives on that listener.
func New(localAddr string, handler transport.Handler, sink logging.Sink) (*Transport, error) {
	t := &Transport{
		localAddr: localAddr,
		peers:     make(map[string]*rpc.Client),
		server:    rpc.NewServer(),
		sink:      sink,
	}
	if err := t.server.RegisterName("Raft", &service{h: handler}); err != nil {
		return nil, err
	}
	listener, err := net.Listen("tcp", localAddr)
	if err != nil {
		return nil, err
	}
	t.listener = listener
	go t.acceptConnections()
	if t.sink != nil {
		t.sink.Printf("listening on %s", localAddr)
	}
	return t, nil
}

func (t *Transport) acceptConnections() {
	for {
		conn, err := t.listener.Accept()
		if err != nil {
			var opErr *net.OpError
			if errors.As(err, &opErr) {
				return
			}
			continue
		}
		go t.server.ServeConn(conn)
	}
}

func (t *Transport) Close() error {
	t.mu.Lock()
	for addr, c := range t.peers {
		_ = c.Close()
		delete(t.peers, addr)
	}
	t.mu.Unlock()
	return t.listener.Close()
}

func (t *Transport) getPeer(addr string) (*rpc.Client, error) {
	t.mu.RLock()
	client, ok := t.peers[addr]
	t.mu.RUnlock()
	if ok {
		return client, nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if client, ok := t.peers[addr]; ok {
		return client, nil
	}
	conn, err := net.DialTimeout("tcp", addr, DialTimeout)
	if err != nil {
		return nil, err
	}
	client = rpc.NewClient(conn)
	t.peers[addr] = client
	return client, nil
}

func (t *Transport) call(addr, method string, args, reply any) error {
	client, err := t.getPeer(addr)
	if err != nil {
		return err
	}
	if err := client.Call("Raft."+method, args, reply); err != nil {
		if errors.Is(err, rpc.ErrShutdown) {
			t.mu.Lock()
			delete(t.peers, addr)
			t.mu.Unlock()
		}
		return err
	}
	return nil
}

func (t *Transport) Vote(addr string, req *message.VoteRequest) (*message.VoteResponse, error) {
	resp := &message.VoteResponse{}
	if err := t.call(addr, "Vote", req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (t *Transport) Poll(addr string, req *message.PollRequest) (*message.PollResponse, error) {
	resp := &message.PollResponse{}
	if err := t.call(addr, "Poll", req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (t *Transport) Append(addr string, req *message.AppendRequest) (*message.AppendResponse, error) {
	resp := &message.AppendResponse{}
	if err := t.call(addr, "Append", req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (t *Transport) Install(addr string, req *message.InstallRequest) (*message.InstallResponse, error) {
	resp := &message.InstallResponse{}
	if err := t.call(addr, "Install", req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (t *Transport) Configure(addr string, req *message.ConfigureRequest) (*message.ConfigureResponse, error) {
	resp := &message.ConfigureResponse{}
	if err := t.call(addr, "Configure", req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (t *Transport) Join(addr string, req *message.JoinRequest) (*message.JoinResponse, error) {
	resp := &message.JoinResponse{}
	if err := t.call(addr, "Join", req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (t *Transport) Leave(addr string, req *message.LeaveRequest) (*message.LeaveResponse, error) {
	resp := &message.LeaveResponse{}
	if err := t.call(addr, "Leave", req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (t *Transport) Reconfigure(addr string, req *message.ReconfigureRequest) (*message.ReconfigureResponse, error) {
	resp := &message.ReconfigureResponse{}
	if err := t.call(addr, "Reconfigure", req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (t *Transport) OpenSession(addr string, req *message.OpenSessionRequest) (*message.OpenSessionResponse, error) {
	resp := &message.OpenSessionResponse{}
	if err := t.call(addr, "OpenSession", req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (t *Transport) CloseSession(addr string, req *message.CloseSessionRequest) (*message.CloseSessionResponse, error) {
	resp := &message.CloseSessionResponse{}
	if err := t.call(addr, "CloseSession", req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (t *Transport) KeepAlive(addr string, req *message.KeepAliveRequest) (*message.KeepAliveResponse, error) {
	resp := &message.KeepAliveResponse{}
	if err := t.call(addr, "KeepAlive", req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (t *Transport) Command(addr string, req *message.CommandRequest) (*message.CommandResponse, error) {
	resp := &message.CommandResponse{}
	if err := t.call(addr, "Command", req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (t *Transport) Query(addr string, req *message.QueryRequest) (*message.QueryResponse, error) {
	resp := &message.QueryResponse{}
	if err := t.call(addr, "Query", req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (t *Transport) Metadata(addr string, req *message.MetadataRequest) (*message.MetadataResponse, error) {
	resp := &message.MetadataResponse{}
	if err := t.call(addr, "Metadata", req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

var _ transport.Transport = (*Transport)(nil)
