// Package inmemory implements transport.Transport with direct in-process
// dispatch: sending a request calls the target's registered handler
// synchronously, on the caller's own goroutine. Used by package tests that
// wire up a multi-server cluster without touching the network.
package inmemory

import (
	"fmt"
	"sync"

	"github.com/xmh1011/go-raft/message"
	"github.com/xmh1011/go-raft/transport"
)

// Transport is a registry of addr -> Handler shared by every server under
// test; each server's own Transport value just carries its local address.
type Transport struct {
	localAddr string
	registry  *Registry
}

// Registry is the shared switchboard every in-memory Transport dials
// through. Construct one per test cluster.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]transport.Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]transport.Handler)}
}

// Register binds addr to a handler, overwriting any previous binding.
func (r *Registry) Register(addr string, h transport.Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[addr] = h
}

// Unregister removes addr, simulating a crashed or partitioned server.
func (r *Registry) Unregister(addr string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handlers, addr)
}

func (r *Registry) get(addr string) (transport.Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[addr]
	if !ok {
		return nil, fmt.Errorf("inmemory transport: no peer registered at %q", addr)
	}
	return h, nil
}

// New returns a Transport that dials through registry, identifying itself
// as localAddr (not currently used for anything but symmetry with the
// other transports).
func New(localAddr string, registry *Registry) *Transport {
	return &Transport{localAddr: localAddr, registry: registry}
}

func (t *Transport) Vote(addr string, req *message.VoteRequest) (*message.VoteResponse, error) {
	h, err := t.registry.get(addr)
	if err != nil {
		return nil, err
	}
	return h.HandleVote(req)
}

func (t *Transport) Poll(addr string, req *message.PollRequest) (*message.PollResponse, error) {
	h, err := t.registry.get(addr)
	if err != nil {
		return nil, err
	}
	return h.HandlePoll(req)
}

func (t *Transport) Append(addr string, req *message.AppendRequest) (*message.AppendResponse, error) {
	h, err := t.registry.get(addr)
	if err != nil {
		return nil, err
	}
	return h.HandleAppend(req)
}

func (t *Transport) Install(addr string, req *message.InstallRequest) (*message.InstallResponse, error) {
	h, err := t.registry.get(addr)
	if err != nil {
		return nil, err
	}
	return h.HandleInstall(req)
}

func (t *Transport) Configure(addr string, req *message.ConfigureRequest) (*message.ConfigureResponse, error) {
	h, err := t.registry.get(addr)
	if err != nil {
		return nil, err
	}
	return h.HandleConfigure(req)
}

func (t *Transport) Join(addr string, req *message.JoinRequest) (*message.JoinResponse, error) {
	h, err := t.registry.get(addr)
	if err != nil {
		return nil, err
	}
	return h.HandleJoin(req)
}

func (t *Transport) Leave(addr string, req *message.LeaveRequest) (*message.LeaveResponse, error) {
	h, err := t.registry.get(addr)
	if err != nil {
		return nil, err
	}
	return h.HandleLeave(req)
}

func (t *Transport) Reconfigure(addr string, req *message.ReconfigureRequest) (*message.ReconfigureResponse, error) {
	h, err := t.registry.get(addr)
	if err != nil {
		return nil, err
	}
	return h.HandleReconfigure(req)
}

func (t *Transport) OpenSession(addr string, req *message.OpenSessionRequest) (*message.OpenSessionResponse, error) {
	h, err := t.registry.get(addr)
	if err != nil {
		return nil, err
	}
	return h.HandleOpenSession(req)
}

func (t *Transport) CloseSession(addr string, req *message.CloseSessionRequest) (*message.CloseSessionResponse, error) {
	h, err := t.registry.get(addr)
	if err != nil {
		return nil, err
	}
	return h.HandleCloseSession(req)
}

func (t *Transport) KeepAlive(addr string, req *message.KeepAliveRequest) (*message.KeepAliveResponse, error) {
	h, err := t.registry.get(addr)
	if err != nil {
		return nil, err
	}
	return h.HandleKeepAlive(req)
}

func (t *Transport) Command(addr string, req *message.CommandRequest) (*message.CommandResponse, error) {
	h, err := t.registry.get(addr)
	if err != nil {
		return nil, err
	}
	return h.HandleCommand(req)
}

func (t *Transport) Query(addr string, req *message.QueryRequest) (*message.QueryResponse, error) {
	h, err := t.registry.get(addr)
	if err != nil {
		return nil, err
	}
	return h.HandleQuery(req)
}

func (t *Transport) Metadata(addr string, req *message.MetadataRequest) (*message.MetadataResponse, error) {
	h, err := t.registry.get(addr)
	if err != nil {
		return nil, err
	}
	return h.HandleMetadata(req)
}

func (t *Transport) Close() error { return nil }

var _ transport.Transport = (*Transport)(nil)
