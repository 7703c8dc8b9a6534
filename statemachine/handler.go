package statemachine

import (
	"time"

	"github.com/xmh1011/go-raft/errkind"
	"github.com/xmh1011/go-raft/message"
	"github.com/xmh1011/go-raft/role"
	"github.com/xmh1011/go-raft/server"
	"github.com/xmh1011/go-raft/transport"
)

// ProposeTimeout bounds how long a client RPC waits for its proposed entry
// to commit and apply before giving up and reporting failure; the client
// is expected to retry (its sequence number makes the retry idempotent).
const ProposeTimeout = 5 * time.Second

// proposer is the subset of role.Leader the handler needs. Declared
// locally so a future non-Leader proposer (there is none today) could
// satisfy it without statemachine depending on role's internals.
type proposer interface {
	Propose(kind message.EntryKind, payload any) (message.Index, error)
	HasRecentQuorum() bool
}

// Handler implements transport.SessionHandler by proposing client-session
// entries through the current leader (redirecting otherwise) and blocking
// on Manager until they commit and apply. Grounded on the teacher having no
// client-session RPCs at all: this is new code fulfilling
// SPEC_FULL.md's session/command/query surface, built in the same
// role-aware, term-checked style as role.Base's own handlers.
type Handler struct {
	ctx *server.Context
	mgr *Manager
}

func NewHandler(ctx *server.Context, mgr *Manager) *Handler {
	return &Handler{ctx: ctx, mgr: mgr}
}

func (h *Handler) leader() (proposer, bool) {
	l, ok := h.ctx.Role().(*role.Leader)
	return l, ok
}

func (h *Handler) noLeader() message.ResponseStatus {
	return message.Err(errkind.NoLeader, "not the leader")
}

func (h *Handler) propose(kind message.EntryKind, payload any) (message.Index, applyOutcome, message.ResponseStatus, bool) {
	l, ok := h.leader()
	if !ok {
		return 0, applyOutcome{}, h.noLeader(), false
	}
	idx, err := l.Propose(kind, payload)
	if err != nil {
		return 0, applyOutcome{}, message.Err(errkind.ApplicationError, "%v", err), false
	}
	wait := h.mgr.WaitFor(idx)
	select {
	case outcome := <-wait:
		if outcome.err != nil {
			return idx, outcome, message.Err(errkind.CommandFailure, "%v", outcome.err), false
		}
		return idx, outcome, message.OK(), true
	case <-time.After(ProposeTimeout):
		return idx, applyOutcome{}, message.Err(errkind.ApplicationError, "timed out waiting for commit"), false
	}
}

func (h *Handler) HandleOpenSession(req *message.OpenSessionRequest) (*message.OpenSessionResponse, error) {
	idx, _, status, ok := h.propose(message.KindOpenSession, message.OpenSessionPayload{
		Name:         req.Name,
		StateMachine: req.StateMachine,
		Timeout:      req.Timeout,
	})
	if !ok {
		return &message.OpenSessionResponse{Status: status, Leader: h.ctx.Leader()}, nil
	}
	return &message.OpenSessionResponse{Status: message.OK(), Term: h.ctx.CurrentTerm(), Leader: h.ctx.Leader(), Session: message.SessionID(idx)}, nil
}

func (h *Handler) HandleCloseSession(req *message.CloseSessionRequest) (*message.CloseSessionResponse, error) {
	_, _, status, ok := h.propose(message.KindCloseSession, message.CloseSessionPayload{Session: req.Session})
	if !ok {
		return &message.CloseSessionResponse{Status: status, Leader: h.ctx.Leader()}, nil
	}
	return &message.CloseSessionResponse{Status: message.OK(), Leader: h.ctx.Leader()}, nil
}

func (h *Handler) HandleKeepAlive(req *message.KeepAliveRequest) (*message.KeepAliveResponse, error) {
	_, _, status, ok := h.propose(message.KindKeepAlive, message.KeepAlivePayload{
		Session:       req.Session,
		CommandAckSeq: req.CommandAckSeq,
		EventAckIndex: req.EventAckIndex,
	})
	if !ok {
		return &message.KeepAliveResponse{Status: status, Leader: h.ctx.Leader()}, nil
	}
	return &message.KeepAliveResponse{Status: message.OK(), Term: h.ctx.CurrentTerm(), Leader: h.ctx.Leader()}, nil
}

func (h *Handler) HandleCommand(req *message.CommandRequest) (*message.CommandResponse, error) {
	if sess, ok := h.mgr.Session(req.Session); ok {
		if _, isRetry := sess.NextSequence(req.Sequence); isRetry {
			if result, err, hit := h.mgr.CachedResult(req.Session, req.Sequence); hit {
				if err != nil {
					return &message.CommandResponse{Status: message.Err(errkind.CommandFailure, "%v", err), Leader: h.ctx.Leader()}, nil
				}
				return &message.CommandResponse{Status: message.OK(), Result: result, Leader: h.ctx.Leader()}, nil
			}
		}
	}
	idx, outcome, status, ok := h.propose(message.KindCommand, message.CommandPayload{
		Session:     req.Session,
		Sequence:    req.Sequence,
		Command:     req.Payload,
		AckSequence: req.AckSequence,
	})
	if !ok {
		return &message.CommandResponse{Status: status, Leader: h.ctx.Leader()}, nil
	}
	return &message.CommandResponse{Status: message.OK(), Index: idx, Result: outcome.result, Leader: h.ctx.Leader()}, nil
}

// HandleQuery serves LEASE/EVENTUAL reads directly from the current state
// and STRICT reads by appending a KindQuery entry so the read observes
// every command committed before it was issued.
func (h *Handler) HandleQuery(req *message.QueryRequest) (*message.QueryResponse, error) {
	sess, ok := h.mgr.Session(req.Session)
	if !ok {
		return &message.QueryResponse{Status: message.Err(errkind.UnknownSession, "unknown session %d", req.Session), Leader: h.ctx.Leader()}, nil
	}

	if req.Consistency == message.ConsistencyLease {
		l, ok := h.leader()
		if !ok || !l.HasRecentQuorum() {
			return &message.QueryResponse{Status: h.noLeader(), Leader: h.ctx.Leader()}, nil
		}
	}

	if req.Consistency != message.ConsistencyStrict {
		result, err := h.mgr.Query(sess, message.QueryPayload{
			Session:     req.Session,
			MinSequence: req.MinSequence,
			MinIndex:    req.MinIndex,
			Consistency: req.Consistency,
			Query:       req.Payload,
		})
		if err != nil {
			return &message.QueryResponse{Status: message.Err(errkind.QueryFailure, "%v", err), Leader: h.ctx.Leader()}, nil
		}
		return &message.QueryResponse{Status: message.OK(), Index: h.ctx.LastApplied(), Result: result, Leader: h.ctx.Leader()}, nil
	}

	idx, outcome, status, ok := h.propose(message.KindQuery, message.QueryPayload{
		Session:     req.Session,
		MinSequence: req.MinSequence,
		MinIndex:    req.MinIndex,
		Consistency: req.Consistency,
		Query:       req.Payload,
	})
	if !ok {
		return &message.QueryResponse{Status: status, Leader: h.ctx.Leader()}, nil
	}
	return &message.QueryResponse{Status: message.OK(), Index: idx, Result: outcome.result, Leader: h.ctx.Leader()}, nil
}

func (h *Handler) HandleMetadata(req *message.MetadataRequest) (*message.MetadataResponse, error) {
	cfg := h.ctx.Cluster.Current()
	return &message.MetadataResponse{
		Status:  message.OK(),
		Leader:  h.ctx.Leader(),
		Term:    h.ctx.CurrentTerm(),
		Members: cfg.Spec(),
	}, nil
}

var _ transport.SessionHandler = (*Handler)(nil)
