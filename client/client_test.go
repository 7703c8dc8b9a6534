package client

import (
	"errors"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"

	"github.com/xmh1011/go-raft/errkind"
	"github.com/xmh1011/go-raft/message"
	"github.com/xmh1011/go-raft/transport"
)

func setup(t *testing.T) (*gomock.Controller, *transport.MockTransport, *Client) {
	ctrl := gomock.NewController(t)
	mockTrans := transport.NewMockTransport(ctrl)

	servers := map[message.MemberID]string{
		1: "localhost:8001",
		2: "localhost:8002",
		3: "localhost:8003",
	}

	c := NewClient(servers, mockTrans)
	return ctrl, mockTrans, c
}

func TestSelectTarget(t *testing.T) {
	_, _, c := setup(t)

	target := c.selectTarget()
	assert.Contains(t, c.servers, target)

	c.leaderHint = 2
	assert.Equal(t, message.MemberID(2), c.selectTarget())
}

func TestDecide(t *testing.T) {
	c := &Client{leaderHint: 1}

	t.Run("network error resets leader hint", func(t *testing.T) {
		c.leaderHint = 1
		act := c.decide(1, responseLike{}, errors.New("connection refused"))
		assert.Equal(t, actionRetry, act)
		assert.Equal(t, message.NoLeader, c.leaderHint)
	})

	t.Run("not-leader reply updates leader hint", func(t *testing.T) {
		c.leaderHint = 1
		act := c.decide(1, responseLike{
			status: message.Err(errkind.NoLeader, "not leader"),
			leader: 3,
		}, nil)
		assert.Equal(t, actionRetry, act)
		assert.Equal(t, message.MemberID(3), c.leaderHint)
	})

	t.Run("application failure fails outright", func(t *testing.T) {
		c.leaderHint = 1
		act := c.decide(1, responseLike{
			status: message.Err(errkind.CommandFailure, "bad command"),
		}, nil)
		assert.Equal(t, actionFail, act)
	})

	t.Run("ok status succeeds", func(t *testing.T) {
		act := c.decide(1, responseLike{status: message.OK()}, nil)
		assert.Equal(t, actionSuccess, act)
	})
}

func TestOpen(t *testing.T) {
	t.Run("success on first try", func(t *testing.T) {
		ctrl, mockTrans, c := setup(t)
		defer ctrl.Finish()

		c.leaderHint = 1
		mockTrans.EXPECT().
			OpenSession("localhost:8001", gomock.Any()).
			Return(&message.OpenSessionResponse{Status: message.OK(), Session: 42}, nil)

		err := c.Open("client-a", "kv", 0)
		assert.NoError(t, err)
		assert.Equal(t, message.SessionID(42), c.session)
	})

	t.Run("retries after redirect to the hinted leader", func(t *testing.T) {
		ctrl, mockTrans, c := setup(t)
		defer ctrl.Finish()

		c.leaderHint = 1
		gomock.InOrder(
			mockTrans.EXPECT().
				OpenSession("localhost:8001", gomock.Any()).
				Return(&message.OpenSessionResponse{Status: message.Err(errkind.NoLeader, "not leader"), Leader: 2}, nil),
			mockTrans.EXPECT().
				OpenSession("localhost:8002", gomock.Any()).
				Return(&message.OpenSessionResponse{Status: message.OK(), Session: 7}, nil),
		)

		err := c.Open("client-a", "kv", 0)
		assert.NoError(t, err)
		assert.Equal(t, message.MemberID(2), c.leaderHint)
		assert.Equal(t, message.SessionID(7), c.session)
	})
}

func TestCommand(t *testing.T) {
	t.Run("success on first try", func(t *testing.T) {
		ctrl, mockTrans, c := setup(t)
		defer ctrl.Finish()
		c.leaderHint = 1
		c.session = 42

		mockTrans.EXPECT().
			Command("localhost:8001", gomock.Any()).
			DoAndReturn(func(_ string, req *message.CommandRequest) (*message.CommandResponse, error) {
				assert.Equal(t, message.SessionID(42), req.Session)
				assert.Equal(t, uint64(1), req.Sequence)
				return &message.CommandResponse{Status: message.OK(), Result: "OK"}, nil
			})

		result, err := c.Command("set key value")
		assert.NoError(t, err)
		assert.Equal(t, "OK", result)
		assert.Equal(t, uint64(1), c.sequence)
	})

	t.Run("network error resets leader hint and retries elsewhere", func(t *testing.T) {
		ctrl, mockTrans, c := setup(t)
		defer ctrl.Finish()
		c.leaderHint = 1
		c.session = 42

		gomock.InOrder(
			mockTrans.EXPECT().
				Command("localhost:8001", gomock.Any()).
				Return(nil, errors.New("connection refused")),
			mockTrans.EXPECT().
				Command(gomock.Any(), gomock.Any()).
				Return(&message.CommandResponse{Status: message.OK(), Result: "OK"}, nil),
		)

		result, err := c.Command("set key value")
		assert.NoError(t, err)
		assert.Equal(t, "OK", result)
	})

	t.Run("application failure is not retried", func(t *testing.T) {
		ctrl, mockTrans, c := setup(t)
		defer ctrl.Finish()
		c.leaderHint = 1
		c.session = 42

		mockTrans.EXPECT().
			Command("localhost:8001", gomock.Any()).
			Return(&message.CommandResponse{Status: message.Err(errkind.CommandFailure, "bad command")}, nil)

		_, err := c.Command("bogus")
		assert.Error(t, err)
	})
}

func TestQuery(t *testing.T) {
	ctrl, mockTrans, c := setup(t)
	defer ctrl.Finish()
	c.leaderHint = 1
	c.session = 42

	mockTrans.EXPECT().
		Query("localhost:8001", gomock.Any()).
		DoAndReturn(func(_ string, req *message.QueryRequest) (*message.QueryResponse, error) {
			assert.Equal(t, message.ConsistencyLease, req.Consistency)
			return &message.QueryResponse{Status: message.OK(), Result: "value1"}, nil
		})

	result, err := c.Query("get key1", message.ConsistencyLease)
	assert.NoError(t, err)
	assert.Equal(t, "value1", result)
}
