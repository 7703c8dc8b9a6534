// Code written by hand in the shape mockgen would generate for
// Transport (see the go:generate directive below); golang/mock has no
// network access in this environment to run mockgen itself, so this file
// substitutes for its output rather than dropping the dependency.
//
//go:generate mockgen -destination=mock_transport.go -package=transport github.com/xmh1011/go-raft/transport Transport

package transport

import (
	"reflect"

	"github.com/golang/mock/gomock"

	"github.com/xmh1011/go-raft/message"
)

// MockTransport is a mock of Transport, used by client package tests to
// drive leader-redirect/retry logic without a real listener.
type MockTransport struct {
	ctrl     *gomock.Controller
	recorder *MockTransportMockRecorder
}

type MockTransportMockRecorder struct {
	mock *MockTransport
}

func NewMockTransport(ctrl *gomock.Controller) *MockTransport {
	mock := &MockTransport{ctrl: ctrl}
	mock.recorder = &MockTransportMockRecorder{mock}
	return mock
}

func (m *MockTransport) EXPECT() *MockTransportMockRecorder {
	return m.recorder
}

func (m *MockTransport) Vote(addr string, req *message.VoteRequest) (*message.VoteResponse, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Vote", addr, req)
	ret0, _ := ret[0].(*message.VoteResponse)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

func (mr *MockTransportMockRecorder) Vote(addr, req any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Vote", reflect.TypeOf((*MockTransport)(nil).Vote), addr, req)
}

func (m *MockTransport) Poll(addr string, req *message.PollRequest) (*message.PollResponse, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Poll", addr, req)
	ret0, _ := ret[0].(*message.PollResponse)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

func (mr *MockTransportMockRecorder) Poll(addr, req any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Poll", reflect.TypeOf((*MockTransport)(nil).Poll), addr, req)
}

func (m *MockTransport) Append(addr string, req *message.AppendRequest) (*message.AppendResponse, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Append", addr, req)
	ret0, _ := ret[0].(*message.AppendResponse)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

func (mr *MockTransportMockRecorder) Append(addr, req any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Append", reflect.TypeOf((*MockTransport)(nil).Append), addr, req)
}

func (m *MockTransport) Install(addr string, req *message.InstallRequest) (*message.InstallResponse, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Install", addr, req)
	ret0, _ := ret[0].(*message.InstallResponse)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

func (mr *MockTransportMockRecorder) Install(addr, req any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Install", reflect.TypeOf((*MockTransport)(nil).Install), addr, req)
}

func (m *MockTransport) Configure(addr string, req *message.ConfigureRequest) (*message.ConfigureResponse, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Configure", addr, req)
	ret0, _ := ret[0].(*message.ConfigureResponse)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

func (mr *MockTransportMockRecorder) Configure(addr, req any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Configure", reflect.TypeOf((*MockTransport)(nil).Configure), addr, req)
}

func (m *MockTransport) Join(addr string, req *message.JoinRequest) (*message.JoinResponse, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Join", addr, req)
	ret0, _ := ret[0].(*message.JoinResponse)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

func (mr *MockTransportMockRecorder) Join(addr, req any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Join", reflect.TypeOf((*MockTransport)(nil).Join), addr, req)
}

func (m *MockTransport) Leave(addr string, req *message.LeaveRequest) (*message.LeaveResponse, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Leave", addr, req)
	ret0, _ := ret[0].(*message.LeaveResponse)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

func (mr *MockTransportMockRecorder) Leave(addr, req any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Leave", reflect.TypeOf((*MockTransport)(nil).Leave), addr, req)
}

func (m *MockTransport) Reconfigure(addr string, req *message.ReconfigureRequest) (*message.ReconfigureResponse, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Reconfigure", addr, req)
	ret0, _ := ret[0].(*message.ReconfigureResponse)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

func (mr *MockTransportMockRecorder) Reconfigure(addr, req any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Reconfigure", reflect.TypeOf((*MockTransport)(nil).Reconfigure), addr, req)
}

func (m *MockTransport) OpenSession(addr string, req *message.OpenSessionRequest) (*message.OpenSessionResponse, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "OpenSession", addr, req)
	ret0, _ := ret[0].(*message.OpenSessionResponse)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

func (mr *MockTransportMockRecorder) OpenSession(addr, req any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "OpenSession", reflect.TypeOf((*MockTransport)(nil).OpenSession), addr, req)
}

func (m *MockTransport) CloseSession(addr string, req *message.CloseSessionRequest) (*message.CloseSessionResponse, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "CloseSession", addr, req)
	ret0, _ := ret[0].(*message.CloseSessionResponse)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

func (mr *MockTransportMockRecorder) CloseSession(addr, req any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "CloseSession", reflect.TypeOf((*MockTransport)(nil).CloseSession), addr, req)
}

func (m *MockTransport) KeepAlive(addr string, req *message.KeepAliveRequest) (*message.KeepAliveResponse, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "KeepAlive", addr, req)
	ret0, _ := ret[0].(*message.KeepAliveResponse)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

func (mr *MockTransportMockRecorder) KeepAlive(addr, req any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "KeepAlive", reflect.TypeOf((*MockTransport)(nil).KeepAlive), addr, req)
}

func (m *MockTransport) Command(addr string, req *message.CommandRequest) (*message.CommandResponse, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Command", addr, req)
	ret0, _ := ret[0].(*message.CommandResponse)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

func (mr *MockTransportMockRecorder) Command(addr, req any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Command", reflect.TypeOf((*MockTransport)(nil).Command), addr, req)
}

func (m *MockTransport) Query(addr string, req *message.QueryRequest) (*message.QueryResponse, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Query", addr, req)
	ret0, _ := ret[0].(*message.QueryResponse)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

func (mr *MockTransportMockRecorder) Query(addr, req any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Query", reflect.TypeOf((*MockTransport)(nil).Query), addr, req)
}

func (m *MockTransport) Metadata(addr string, req *message.MetadataRequest) (*message.MetadataResponse, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Metadata", addr, req)
	ret0, _ := ret[0].(*message.MetadataResponse)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

func (mr *MockTransportMockRecorder) Metadata(addr, req any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Metadata", reflect.TypeOf((*MockTransport)(nil).Metadata), addr, req)
}

func (m *MockTransport) Close() error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Close")
	ret0, _ := ret[0].(error)
	return ret0
}

func (mr *MockTransportMockRecorder) Close() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Close", reflect.TypeOf((*MockTransport)(nil).Close))
}

var _ Transport = (*MockTransport)(nil)
