// Package membership implements single-server configuration changes:
// Join admits a new RESERVE member, Leave removes one, Reconfigure pushes
// an arbitrary new member set, and a periodic sweep promotes learners
// through RESERVE -> PASSIVE -> ACTIVE once they have caught up. Grounded
// on the teacher's ChangeConfig (propose-then-apply-immediately, one change
// in flight at a time) and original_source's four-role member lifecycle
// (RaftServer.State: RESERVE/PASSIVE/ACTIVE), which the teacher's
// two-role leader/follower design has no equivalent of.
package membership

import (
	"time"

	"github.com/xmh1011/go-raft/cluster"
	"github.com/xmh1011/go-raft/errkind"
	"github.com/xmh1011/go-raft/executor"
	"github.com/xmh1011/go-raft/message"
	"github.com/xmh1011/go-raft/role"
	"github.com/xmh1011/go-raft/server"
)

// CatchUpSlack is how close a PASSIVE learner's match_index must be to the
// leader's last log index before it is promoted to ACTIVE; promoting too
// early would let a slow voter stall future commits.
const CatchUpSlack = message.Index(5)

// proposer is the subset of role.Leader Coordinator needs.
type proposer interface {
	Propose(kind message.EntryKind, payload any) (message.Index, error)
	HasPendingConfiguration() bool
	Resign()
}

// SweepInterval is how often PromoteCaughtUp runs while this server holds
// leadership.
const SweepInterval = 500 * time.Millisecond

// Coordinator implements the membership-change RPCs role.Base delegates
// to, plus a promotion sweep driven by a timer on the protocol context.
type Coordinator struct {
	ctx   *server.Context
	timer *executor.Timer
}

func NewCoordinator(ctx *server.Context) *Coordinator {
	return &Coordinator{ctx: ctx}
}

// Start arms the promotion sweep on the protocol context; safe to call
// whether or not this server is currently the leader, since PromoteCaughtUp
// is a no-op when it is not.
func (c *Coordinator) Start() {
	if c.timer != nil {
		return
	}
	var tick func()
	tick = func() {
		c.PromoteCaughtUp()
		c.timer.Reset(SweepInterval)
	}
	c.timer = executor.NewTimer(c.ctx.Protocol, SweepInterval, tick)
}

// Stop cancels the promotion sweep, called on server shutdown.
func (c *Coordinator) Stop() {
	if c.timer != nil {
		c.timer.Stop()
	}
}

func (c *Coordinator) leader() (proposer, bool) {
	l, ok := c.ctx.Role().(*role.Leader)
	return l, ok
}

func (c *Coordinator) reject(kind errkind.Kind, format string, args ...any) message.ResponseStatus {
	return message.Err(kind, format, args...)
}

// HandleJoin admits a new member as RESERVE, the entry point for every
// member a cluster has never seen before.
func (c *Coordinator) HandleJoin(req *message.JoinRequest) (*message.JoinResponse, error) {
	l, ok := c.leader()
	if !ok {
		return &message.JoinResponse{Status: c.reject(errkind.NoLeader, "not the leader"), Leader: c.ctx.Leader()}, nil
	}
	if l.HasPendingConfiguration() {
		return &message.JoinResponse{Status: c.reject(errkind.ConfigurationError, "a configuration change is already in progress")}, nil
	}

	cfg := c.ctx.Cluster.Current()
	if _, exists := cfg.Member(req.Member.ID); exists {
		return &message.JoinResponse{Status: c.reject(errkind.ConfigurationError, "member %d already joined", req.Member.ID)}, nil
	}

	spec := req.Member
	spec.Role = message.RoleReserve
	members := append(append([]message.MemberSpec{}, cfg.Spec()...), spec)

	idx, err := proposeMembers(l, members)
	if err != nil {
		return &message.JoinResponse{Status: c.reject(errkind.ConfigurationError, "%v", err)}, nil
	}
	return &message.JoinResponse{Status: message.OK(), Leader: c.ctx.Leader(), Members: members, Index: idx}, nil
}

// HandleLeave removes a member from the configuration outright.
func (c *Coordinator) HandleLeave(req *message.LeaveRequest) (*message.LeaveResponse, error) {
	l, ok := c.leader()
	if !ok {
		return &message.LeaveResponse{Status: c.reject(errkind.NoLeader, "not the leader"), Leader: c.ctx.Leader()}, nil
	}
	if l.HasPendingConfiguration() {
		return &message.LeaveResponse{Status: c.reject(errkind.ConfigurationError, "a configuration change is already in progress")}, nil
	}

	cfg := c.ctx.Cluster.Current()
	if _, exists := cfg.Member(req.Member); !exists {
		return &message.LeaveResponse{Status: c.reject(errkind.ConfigurationError, "unknown member %d", req.Member)}, nil
	}

	var members []message.MemberSpec
	for _, m := range cfg.Spec() {
		if m.ID != req.Member {
			members = append(members, m)
		}
	}

	idx, err := proposeMembers(l, members)
	if err != nil {
		return &message.LeaveResponse{Status: c.reject(errkind.ConfigurationError, "%v", err)}, nil
	}
	c.ctx.Cluster.RemoveMember(req.Member)
	if req.Member == c.ctx.ID {
		l.Resign()
	}
	return &message.LeaveResponse{Status: message.OK(), Leader: c.ctx.Leader(), Members: members, Index: idx}, nil
}

// HandleReconfigure pushes an arbitrary member set as one configuration
// entry. The promotion sweep does not go through it: promote builds its own
// member set and proposes it with proposeMembers.
func (c *Coordinator) HandleReconfigure(req *message.ReconfigureRequest) (*message.ReconfigureResponse, error) {
	l, ok := c.leader()
	if !ok {
		return &message.ReconfigureResponse{Status: c.reject(errkind.NoLeader, "not the leader"), Leader: c.ctx.Leader()}, nil
	}
	if l.HasPendingConfiguration() {
		return &message.ReconfigureResponse{Status: c.reject(errkind.ConfigurationError, "a configuration change is already in progress")}, nil
	}

	idx, err := proposeMembers(l, req.Members)
	if err != nil {
		return &message.ReconfigureResponse{Status: c.reject(errkind.ConfigurationError, "%v", err)}, nil
	}
	return &message.ReconfigureResponse{Status: message.OK(), Leader: c.ctx.Leader(), Members: req.Members, Index: idx}, nil
}

func proposeMembers(l proposer, members []message.MemberSpec) (message.Index, error) {
	return l.Propose(message.KindConfiguration, message.ConfigurationPayload{Members: members})
}

// PromoteCaughtUp runs one promotion sweep: any RESERVE member with a
// responsive appender (PerMember.Available) is promoted to PASSIVE, and any
// PASSIVE member whose MatchIndex is within CatchUpSlack of the leader's
// last log index is promoted to ACTIVE. Only one promotion is proposed per
// sweep, since only one configuration change may be in flight at a time.
func (c *Coordinator) PromoteCaughtUp() {
	l, ok := c.leader()
	if !ok || l.HasPendingConfiguration() {
		return
	}

	cfg := c.ctx.Cluster.Current()
	last, _ := c.ctx.Log.Writer().LastIndex()

	for _, m := range cfg.Members {
		if m.ID == c.ctx.ID {
			continue
		}
		switch m.Role {
		case message.RoleReserve:
			pm := c.ctx.Cluster.PerMember(m.ID, last)
			if pm.Available {
				c.promote(cfg, m.ID, message.RolePassive)
				return
			}
		case message.RolePassive:
			pm := c.ctx.Cluster.PerMember(m.ID, last)
			if last >= pm.MatchIndex && last-pm.MatchIndex <= CatchUpSlack {
				c.promote(cfg, m.ID, message.RoleActive)
				return
			}
		}
	}
}

func (c *Coordinator) promote(cfg cluster.Configuration, id message.MemberID, role message.MemberRole) {
	l, ok := c.leader()
	if !ok {
		return
	}
	members := make([]message.MemberSpec, len(cfg.Members))
	for i, m := range cfg.Members {
		spec := m.Spec()
		if m.ID == id {
			spec.Role = role
		}
		members[i] = spec
	}
	_, _ = proposeMembers(l, members)
}
