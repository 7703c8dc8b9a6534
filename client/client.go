// Package client implements the session/command/query protocol a raftctl
// operator (or any embedding program) speaks to a cluster: open a session,
// then issue commands and queries with automatic leader redirect and
// retry. Grounded on the teacher's client.go (select-target/attempt/decide
// retry loop keyed off a leader hint), adapted from the teacher's
// ClientArgs/ClientReply, which had no notion of a session, to
// OpenSession/Command/Query against the session-aware RPC surface.
package client

import (
	"fmt"
	"log"
	"time"

	"github.com/xmh1011/go-raft/errkind"
	"github.com/xmh1011/go-raft/message"
	"github.com/xmh1011/go-raft/transport"
)

// action is the next step after one attempt against a target node.
type action int

const (
	actionSuccess action = iota
	actionFail
	actionRetry
)

// OpTimeout bounds how long one Command/Query call retries before giving
// up, matching the teacher's 5 second SendCommand deadline.
const OpTimeout = 5 * time.Second

const retryBackoff = 100 * time.Millisecond

// Client drives the session protocol against a cluster of known server
// addresses, following leader redirects as the RPC layer reports them.
type Client struct {
	servers    map[message.MemberID]string
	leaderHint message.MemberID
	trans      transport.Transport

	session  message.SessionID
	sequence uint64
	acked    uint64
}

// NewClient constructs a Client; it does not contact the cluster until
// Open is called.
func NewClient(servers map[message.MemberID]string, trans transport.Transport) *Client {
	return &Client{servers: servers, trans: trans}
}

// Open establishes a session against the named state machine, required
// before Command or Query.
func (c *Client) Open(name, stateMachine string, timeout time.Duration) error {
	deadline := time.After(OpTimeout)
	for {
		select {
		case <-deadline:
			return fmt.Errorf("client: OpenSession timed out after %s", OpTimeout)
		default:
			target := c.selectTarget()
			resp, err := c.trans.OpenSession(c.servers[target], &message.OpenSessionRequest{
				Name:         name,
				StateMachine: stateMachine,
				Timeout:      int64(timeout),
			})
			act := c.decide(target, responseLike{status: statusOf(resp, err), leader: leaderOf(resp)}, err)
			switch act {
			case actionSuccess:
				c.session = resp.Session
				return nil
			case actionFail:
				return fmt.Errorf("client: OpenSession rejected: %s", resp.Status.Message)
			case actionRetry:
				time.Sleep(retryBackoff)
			}
		}
	}
}

// Command proposes a linearizable write and returns its result once
// committed and applied, retrying against the current leader hint on
// failure or redirect.
func (c *Client) Command(payload any) (any, error) {
	c.sequence++
	seq := c.sequence
	deadline := time.After(OpTimeout)
	for {
		select {
		case <-deadline:
			return nil, fmt.Errorf("client: command (seq:%d) timed out after %s", seq, OpTimeout)
		default:
			target := c.selectTarget()
			resp, err := c.trans.Command(c.servers[target], &message.CommandRequest{
				Session:     c.session,
				Sequence:    seq,
				Payload:     payload,
				AckSequence: c.acked,
			})
			act := c.decide(target, responseLike{status: statusOf(resp, err), leader: leaderOf(resp)}, err)
			switch act {
			case actionSuccess:
				c.acked = seq
				return resp.Result, nil
			case actionFail:
				return nil, fmt.Errorf("client: command (seq:%d) failed: %s", seq, resp.Status.Message)
			case actionRetry:
				time.Sleep(retryBackoff)
			}
		}
	}
}

// Query reads under the given consistency mode. LEASE/EVENTUAL reads are
// answered without replication; STRICT reads wait for a committed
// read-index, same retry semantics as Command.
func (c *Client) Query(payload any, consistency message.Consistency) (any, error) {
	deadline := time.After(OpTimeout)
	for {
		select {
		case <-deadline:
			return nil, fmt.Errorf("client: query timed out after %s", OpTimeout)
		default:
			target := c.selectTarget()
			resp, err := c.trans.Query(c.servers[target], &message.QueryRequest{
				Session:     c.session,
				MinSequence: c.sequence,
				Consistency: consistency,
				Payload:     payload,
			})
			act := c.decide(target, responseLike{status: statusOf(resp, err), leader: leaderOf(resp)}, err)
			switch act {
			case actionSuccess:
				return resp.Result, nil
			case actionFail:
				return nil, fmt.Errorf("client: query failed: %s", resp.Status.Message)
			case actionRetry:
				time.Sleep(retryBackoff)
			}
		}
	}
}

// selectTarget returns the leader hint if known, otherwise an arbitrary
// known server to probe.
func (c *Client) selectTarget() message.MemberID {
	if c.leaderHint != message.NoLeader {
		return c.leaderHint
	}
	for id := range c.servers {
		return id
	}
	return message.NoLeader
}

// responseLike is the subset of every *Response shape decide needs,
// collapsed so one retry-decision function serves OpenSession/Command/Query.
type responseLike struct {
	status message.ResponseStatus
	leader message.MemberID
}

func (c *Client) decide(target message.MemberID, r responseLike, err error) action {
	if err != nil {
		log.Printf("[Client] error contacting node %d: %v, retrying", target, err)
		c.leaderHint = message.NoLeader
		return actionRetry
	}
	if !r.status.OK {
		if r.status.Kind == errkind.NoLeader {
			log.Printf("[Client] node %d is not leader, new hint: %d", target, r.leader)
			if r.leader != message.NoLeader {
				c.leaderHint = r.leader
			} else {
				c.leaderHint = message.NoLeader
			}
			return actionRetry
		}
		return actionFail
	}
	return actionSuccess
}

func statusOf(resp any, err error) message.ResponseStatus {
	if err != nil {
		return message.ResponseStatus{}
	}
	switch r := resp.(type) {
	case *message.OpenSessionResponse:
		if r == nil {
			return message.ResponseStatus{}
		}
		return r.Status
	case *message.CommandResponse:
		if r == nil {
			return message.ResponseStatus{}
		}
		return r.Status
	case *message.QueryResponse:
		if r == nil {
			return message.ResponseStatus{}
		}
		return r.Status
	default:
		return message.ResponseStatus{}
	}
}

func leaderOf(resp any) message.MemberID {
	switch r := resp.(type) {
	case *message.OpenSessionResponse:
		if r == nil {
			return message.NoLeader
		}
		return r.Leader
	case *message.CommandResponse:
		if r == nil {
			return message.NoLeader
		}
		return r.Leader
	case *message.QueryResponse:
		if r == nil {
			return message.NoLeader
		}
		return r.Leader
	default:
		return message.NoLeader
	}
}
