package replicate

import (
	"github.com/xmh1011/go-raft/cluster"
	"github.com/xmh1011/go-raft/logging"
	"github.com/xmh1011/go-raft/message"
	"github.com/xmh1011/go-raft/storage"
	"github.com/xmh1011/go-raft/transport"
)

// ChunkSize bounds one InstallSnapshot RPC's payload, grounded on the
// message.InstallRequest wire shape (Offset/Complete already imply a
// streamed transfer even though the teacher's own InstallSnapshot sent the
// whole blob in one RPC).
const ChunkSize = 64 * 1024

// InstallPipeline streams the current snapshot to one follower in
// ChunkSize pieces, restarting from offset 0 whenever the follower's
// reported progress does not match what was last sent.
type InstallPipeline struct {
	view    LeaderView
	trans   transport.Transport
	snap    storage.SnapshotStore
	member  *cluster.Member
	tracker *cluster.PerMember
	sink    logging.Sink

	reader storage.SnapshotReader
	handle storage.SnapshotHandle
	done   func(ok bool)
}

func NewInstallPipeline(view LeaderView, trans transport.Transport, snap storage.SnapshotStore, member *cluster.Member, tracker *cluster.PerMember, sink logging.Sink) *InstallPipeline {
	return &InstallPipeline{view: view, trans: trans, snap: snap, member: member, tracker: tracker, sink: sink}
}

// Start opens the current snapshot (or resumes the one already opened for
// this member) and sends the next chunk. done is invoked once, when the
// transfer either completes or fails outright.
func (p *InstallPipeline) Start(done func(ok bool)) {
	p.done = done

	handle, err := p.snap.GetCurrent()
	if err != nil {
		p.sink.Printf("member %d: no snapshot available: %v", p.member.ID, err)
		p.finish(false)
		return
	}

	if p.reader == nil || p.handle != handle {
		if p.reader != nil {
			p.reader.Close()
		}
		r, err := p.snap.OpenReader(handle)
		if err != nil {
			p.sink.Printf("member %d: failed to open snapshot %d: %v", p.member.ID, handle.ID, err)
			p.finish(false)
			return
		}
		p.reader = r
		p.handle = handle
		p.tracker.NextSnapshotIndex = handle.Index
		p.tracker.NextSnapshotOffset = 0
	}

	p.sendChunk()
}

func (p *InstallPipeline) sendChunk() {
	buf := make([]byte, ChunkSize)
	n, rerr := p.reader.Read(buf)
	complete := rerr != nil

	req := &message.InstallRequest{
		Term:          p.view.CurrentTerm(),
		Leader:        p.view.ID(),
		SnapshotID:    p.handle.ID,
		SnapshotIndex: p.handle.Index,
		SnapshotTerm:  p.handle.Term,
		Offset:        p.tracker.NextSnapshotOffset,
		Data:          buf[:n],
		Complete:      complete,
	}

	go func() {
		resp, err := p.trans.Install(p.member.Address, req)
		p.view.Post(func() { p.onResponse(req, resp, err) })
	}()
}

func (p *InstallPipeline) onResponse(req *message.InstallRequest, resp *message.InstallResponse, err error) {
	if err != nil || resp == nil {
		p.finish(false)
		return
	}
	if resp.Term > p.view.CurrentTerm() {
		p.view.StepDown(resp.Term)
		p.finish(false)
		return
	}
	if !resp.Status.OK {
		// Follower reports an out-of-order chunk; restart the transfer.
		p.tracker.ResetSnapshotProgress()
		p.reader.Close()
		p.reader = nil
		p.finish(false)
		return
	}

	p.tracker.NextSnapshotOffset += uint64(len(req.Data))

	if !req.Complete {
		p.sendChunk()
		return
	}

	p.reader.Close()
	p.reader = nil
	p.tracker.NextIndex = p.handle.Index + 1
	p.tracker.MatchIndex = p.handle.Index
	p.tracker.ResetSnapshotProgress()
	p.finish(true)
}

func (p *InstallPipeline) finish(ok bool) {
	done := p.done
	p.done = nil
	if done != nil {
		done(ok)
	}
}
