// Package node assembles one Raft server out of the library packages:
// storage, server.Context, the Follower, Candidate and Leader roles, the
// membership coordinator, the state-machine manager, and a transport.
// Grounded on the teacher's cmd/server/main.go Server type, which did the
// same assembly inline; pulled into its own package here because there are
// more parts to wire together (three roles plus a membership coordinator
// instead of one Raft struct),
// and because the role/membership/statemachine package tests want the same
// wiring without going through a cobra command.
package node

import (
	"fmt"
	"time"

	"github.com/xmh1011/go-raft/cluster"
	"github.com/xmh1011/go-raft/config"
	"github.com/xmh1011/go-raft/errkind"
	"github.com/xmh1011/go-raft/executor"
	"github.com/xmh1011/go-raft/logging"
	"github.com/xmh1011/go-raft/membership"
	"github.com/xmh1011/go-raft/message"
	"github.com/xmh1011/go-raft/role"
	"github.com/xmh1011/go-raft/server"
	"github.com/xmh1011/go-raft/statemachine"
	"github.com/xmh1011/go-raft/storage"
	"github.com/xmh1011/go-raft/storage/filestore"
	"github.com/xmh1011/go-raft/storage/kvstore"
	"github.com/xmh1011/go-raft/storage/memstore"
	"github.com/xmh1011/go-raft/transport"
	"github.com/xmh1011/go-raft/transport/grpc"
	"github.com/xmh1011/go-raft/transport/inmemory"
	"github.com/xmh1011/go-raft/transport/tcp"
)

// Node is one running Raft server: its state, its role state machine, and
// the transport listener RPCs arrive on.
type Node struct {
	cfg  config.Config
	ctx  *server.Context
	pool *executor.Pool

	members *membership.Coordinator
	state   *statemachine.Manager
	driver  *statemachine.Driver

	trans transport.Transport
	sink  logging.Sink
}

// router implements transport.Handler by delegating to whichever role is
// currently active and to the session handler, letting server.Context's
// transition into a new role take effect on the transport listener without
// re-registering anything.
type router struct {
	ctx     *server.Context
	session *statemachine.Handler
}

func (r *router) proto() transport.ProtocolHandler {
	h, _ := r.ctx.Role().(transport.ProtocolHandler)
	return h
}

func (r *router) HandleVote(req *message.VoteRequest) (*message.VoteResponse, error) {
	return r.proto().HandleVote(req)
}
func (r *router) HandlePoll(req *message.PollRequest) (*message.PollResponse, error) {
	return r.proto().HandlePoll(req)
}
func (r *router) HandleAppend(req *message.AppendRequest) (*message.AppendResponse, error) {
	return r.proto().HandleAppend(req)
}
func (r *router) HandleInstall(req *message.InstallRequest) (*message.InstallResponse, error) {
	return r.proto().HandleInstall(req)
}
func (r *router) HandleConfigure(req *message.ConfigureRequest) (*message.ConfigureResponse, error) {
	return r.proto().HandleConfigure(req)
}
func (r *router) HandleJoin(req *message.JoinRequest) (*message.JoinResponse, error) {
	return r.proto().HandleJoin(req)
}
func (r *router) HandleLeave(req *message.LeaveRequest) (*message.LeaveResponse, error) {
	return r.proto().HandleLeave(req)
}
func (r *router) HandleReconfigure(req *message.ReconfigureRequest) (*message.ReconfigureResponse, error) {
	return r.proto().HandleReconfigure(req)
}
func (r *router) HandleOpenSession(req *message.OpenSessionRequest) (*message.OpenSessionResponse, error) {
	return r.session.HandleOpenSession(req)
}
func (r *router) HandleCloseSession(req *message.CloseSessionRequest) (*message.CloseSessionResponse, error) {
	return r.session.HandleCloseSession(req)
}
func (r *router) HandleKeepAlive(req *message.KeepAliveRequest) (*message.KeepAliveResponse, error) {
	return r.session.HandleKeepAlive(req)
}
func (r *router) HandleCommand(req *message.CommandRequest) (*message.CommandResponse, error) {
	return r.session.HandleCommand(req)
}
func (r *router) HandleQuery(req *message.QueryRequest) (*message.QueryResponse, error) {
	return r.session.HandleQuery(req)
}
func (r *router) HandleMetadata(req *message.MetadataRequest) (*message.MetadataResponse, error) {
	return r.session.HandleMetadata(req)
}

var _ transport.Handler = (*router)(nil)

// New builds every component, starts the transport listening, and opens
// the FOLLOWER role; Start only arms the membership promotion sweep.
func New(cfg config.Config, machines map[string]storage.StateMachine, sink logging.Sink) (*Node, error) {
	cfg = cfg.WithDefaults()
	if sink == nil {
		sink = logging.Default()
	}
	addr, ok := cfg.PeerAddresses[cfg.ID]
	if !ok {
		return nil, fmt.Errorf("node: id %d not present in peer addresses", cfg.ID)
	}

	meta, err := openMeta(cfg)
	if err != nil {
		return nil, fmt.Errorf("node: open metadata store: %w", err)
	}
	log := memstore.NewLog()
	if err := log.Open(); err != nil {
		return nil, fmt.Errorf("node: open log: %w", err)
	}
	snaps := memstore.NewSnapshots()

	members := make([]message.MemberSpec, 0, len(cfg.PeerAddresses))
	for id, peerAddr := range cfg.PeerAddresses {
		members = append(members, message.MemberSpec{ID: message.MemberID(id), Role: message.RoleActive, Address: peerAddr})
	}
	cfgState := cluster.NewState(cluster.FromSpecs(0, 0, members))

	ctx := server.New(message.MemberID(cfg.ID), log, meta, snaps, cfgState, sink)
	ctx.ElectionTimeout = cfg.ElectionTimeout
	ctx.HeartbeatTimeout = cfg.HeartbeatTimeout
	if err := ctx.Restore(); err != nil {
		return nil, fmt.Errorf("node: restore metadata: %w", err)
	}

	if machines == nil {
		machines = map[string]storage.StateMachine{cfg.StateMachineName: kvstore.New()}
	}
	registry := statemachine.NewRegistry()
	for name, sm := range machines {
		registry.Register(name, sm)
	}
	mgr := statemachine.NewManager(registry)
	driver := statemachine.NewDriver(ctx, mgr)
	session := statemachine.NewHandler(ctx, mgr)

	coordinator := membership.NewCoordinator(ctx)

	base := &role.Base{Ctx: ctx, Members: coordinator, State: mgr}
	var follower *role.Follower
	var candidate *role.Candidate
	var leader *role.Leader

	follower = role.NewFollower(base, func() { ctx.Transition(candidate) })
	candidate = role.NewCandidate(base, func() { ctx.Transition(leader) }, func() { ctx.Transition(follower) })
	leader = role.NewLeader(base, func() { ctx.Transition(follower) })

	n := &Node{
		cfg:     cfg,
		ctx:     ctx,
		pool:    executor.NewPool(cfg.WorkerPoolSize),
		members: coordinator,
		state:   mgr,
		driver:  driver,
		sink:    sink,
	}

	rtr := &router{ctx: ctx, session: session}
	trans, err := newTransport(cfg, addr, rtr, sink)
	if err != nil {
		return nil, fmt.Errorf("node: start transport: %w", err)
	}
	n.trans = trans
	base.Trans = trans

	ctx.Transition(follower)
	return n, nil
}

func openMeta(cfg config.Config) (storage.MetaStore, error) {
	switch cfg.Storage {
	case config.StorageMemory:
		return memstore.NewMeta(), nil
	case config.StorageFile, "":
		return filestore.Open(fmt.Sprintf("%s/node-%d.meta", cfg.DataDir, cfg.ID))
	default:
		return nil, errkind.New(errkind.ConfigurationError, "unknown storage kind %q", cfg.Storage)
	}
}

func newTransport(cfg config.Config, addr string, h transport.Handler, sink logging.Sink) (transport.Transport, error) {
	switch cfg.Transport {
	case config.TransportTCP:
		return tcp.New(addr, h, sink)
	case config.TransportGRPC, "":
		return grpc.New(addr, h, sink)
	case config.TransportInMemory:
		if cfg.InMemoryRegistry == nil {
			return nil, errkind.New(errkind.ConfigurationError, "inmemory transport requires a registry")
		}
		cfg.InMemoryRegistry.Register(addr, h)
		return inmemory.New(addr, cfg.InMemoryRegistry), nil
	default:
		return nil, errkind.New(errkind.ConfigurationError, "unknown transport kind %q", cfg.Transport)
	}
}

// Start arms the membership promotion sweep. The role is already open as of
// New; a node accepts RPCs from the moment its transport starts listening.
func (n *Node) Start() {
	n.members.Start()
	n.sink.Printf("node %d started, role=%s", n.cfg.ID, n.ctx.Role().Name())
}

// Stop tears the node down in the reverse order it was built.
func (n *Node) Stop() {
	n.members.Stop()
	n.pool.Close()
	if err := n.trans.Close(); err != nil {
		n.sink.Printf("transport close: %v", err)
	}
	n.ctx.Shutdown(gracePeriod)
}

const gracePeriod = 2 * time.Second

// Context exposes the underlying server.Context, used by package tests
// building a cluster.
func (n *Node) Context() *server.Context { return n.ctx }
