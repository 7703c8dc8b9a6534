// Command raftctl is an interactive-free client for one raftd cluster: it
// opens a session, issues a single command or query, and prints the
// result. Grounded on the teacher's cmd/client/main.go (parse --peers,
// build a client-only transport on an ephemeral port, send one command),
// adapted from the teacher's JSON-encoded param.KVCommand/SendCommand to
// the session-protocol Open/Command/Query against kvstore.Command.
package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xmh1011/go-raft/client"
	"github.com/xmh1011/go-raft/logging"
	"github.com/xmh1011/go-raft/message"
	"github.com/xmh1011/go-raft/storage/kvstore"
	"github.com/xmh1011/go-raft/transport"
	"github.com/xmh1011/go-raft/transport/grpc"
	"github.com/xmh1011/go-raft/transport/tcp"
)

var cfg struct {
	PeersStr     string
	Transport    string
	StateMachine string
	Op           string
	Key          string
	Value        string
	Consistency  string
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "raftctl",
		Short: "Issues one command or query against a raftd cluster",
		Run:   run,
	}

	rootCmd.Flags().StringVar(&cfg.PeersStr, "peers", "1=127.0.0.1:8001,2=127.0.0.1:8002,3=127.0.0.1:8003", "Comma-separated list of peer ID=Address pairs")
	rootCmd.Flags().StringVar(&cfg.Transport, "transport", "grpc", "Transport: tcp or grpc")
	rootCmd.Flags().StringVar(&cfg.StateMachine, "state-machine", "kv", "Name the session is opened against")
	rootCmd.Flags().StringVar(&cfg.Op, "op", "get", "Operation: get, set, or delete")
	rootCmd.Flags().StringVar(&cfg.Key, "key", "foo", "Key to operate on")
	rootCmd.Flags().StringVar(&cfg.Value, "value", "", "Value to set (only for set)")
	rootCmd.Flags().StringVar(&cfg.Consistency, "consistency", "strict", "Query consistency for get: strict, lease, or eventual")

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func run(_ *cobra.Command, _ []string) {
	peers, err := parsePeers(cfg.PeersStr)
	if err != nil {
		log.Fatalf("invalid --peers: %v", err)
	}

	sink := logging.Tagged{Sink: logging.Default(), Tag: "raftctl"}
	trans, err := newClientTransport(cfg.Transport, sink)
	if err != nil {
		log.Fatalf("failed to initialize transport: %v", err)
	}
	defer trans.Close()

	c := client.NewClient(peers, trans)
	if err := c.Open("raftctl", cfg.StateMachine, 0); err != nil {
		log.Fatalf("failed to open session: %v", err)
	}

	op := kvstore.Op(strings.ToLower(cfg.Op))
	cmd := kvstore.Command{Op: op, Key: cfg.Key, Value: cfg.Value}

	if op == kvstore.OpGet {
		result, err := c.Query(cmd, parseConsistency(cfg.Consistency))
		if err != nil {
			fmt.Printf("query failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("%v\n", result)
		return
	}

	result, err := c.Command(cmd)
	if err != nil {
		fmt.Printf("command failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("%v\n", result)
}

// newClientTransport builds a transport that only ever dials out, bound to
// an ephemeral local port since nothing addresses raftctl by name.
func newClientTransport(kind string, sink logging.Sink) (transport.Transport, error) {
	const clientAddr = "127.0.0.1:0"
	switch kind {
	case "tcp":
		return tcp.New(clientAddr, noopHandler{}, sink)
	case "grpc", "":
		return grpc.New(clientAddr, noopHandler{}, sink)
	default:
		return nil, fmt.Errorf("unknown transport %q", kind)
	}
}

// noopHandler answers nothing; raftctl never receives inbound RPCs, it only
// needs a listener address to dial out from.
type noopHandler struct{}

func (noopHandler) HandleVote(*message.VoteRequest) (*message.VoteResponse, error) {
	return nil, fmt.Errorf("raftctl: not a cluster member")
}
func (noopHandler) HandlePoll(*message.PollRequest) (*message.PollResponse, error) {
	return nil, fmt.Errorf("raftctl: not a cluster member")
}
func (noopHandler) HandleAppend(*message.AppendRequest) (*message.AppendResponse, error) {
	return nil, fmt.Errorf("raftctl: not a cluster member")
}
func (noopHandler) HandleInstall(*message.InstallRequest) (*message.InstallResponse, error) {
	return nil, fmt.Errorf("raftctl: not a cluster member")
}
func (noopHandler) HandleConfigure(*message.ConfigureRequest) (*message.ConfigureResponse, error) {
	return nil, fmt.Errorf("raftctl: not a cluster member")
}
func (noopHandler) HandleJoin(*message.JoinRequest) (*message.JoinResponse, error) {
	return nil, fmt.Errorf("raftctl: not a cluster member")
}
func (noopHandler) HandleLeave(*message.LeaveRequest) (*message.LeaveResponse, error) {
	return nil, fmt.Errorf("raftctl: not a cluster member")
}
func (noopHandler) HandleReconfigure(*message.ReconfigureRequest) (*message.ReconfigureResponse, error) {
	return nil, fmt.Errorf("raftctl: not a cluster member")
}
func (noopHandler) HandleOpenSession(*message.OpenSessionRequest) (*message.OpenSessionResponse, error) {
	return nil, fmt.Errorf("raftctl: not a cluster member")
}
func (noopHandler) HandleCloseSession(*message.CloseSessionRequest) (*message.CloseSessionResponse, error) {
	return nil, fmt.Errorf("raftctl: not a cluster member")
}
func (noopHandler) HandleKeepAlive(*message.KeepAliveRequest) (*message.KeepAliveResponse, error) {
	return nil, fmt.Errorf("raftctl: not a cluster member")
}
func (noopHandler) HandleCommand(*message.CommandRequest) (*message.CommandResponse, error) {
	return nil, fmt.Errorf("raftctl: not a cluster member")
}
func (noopHandler) HandleQuery(*message.QueryRequest) (*message.QueryResponse, error) {
	return nil, fmt.Errorf("raftctl: not a cluster member")
}
func (noopHandler) HandleMetadata(*message.MetadataRequest) (*message.MetadataResponse, error) {
	return nil, fmt.Errorf("raftctl: not a cluster member")
}

var _ transport.Handler = noopHandler{}

func parseConsistency(s string) message.Consistency {
	switch strings.ToLower(s) {
	case "lease":
		return message.ConsistencyLease
	case "eventual":
		return message.ConsistencyEventual
	default:
		return message.ConsistencyStrict
	}
}

func parsePeers(s string) (map[message.MemberID]string, error) {
	peers := make(map[message.MemberID]string)
	for _, p := range strings.Split(s, ",") {
		parts := strings.SplitN(p, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid peer entry %q", p)
		}
		id, err := strconv.ParseUint(parts[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid peer ID %q: %w", parts[0], err)
		}
		peers[message.MemberID(id)] = parts[1]
	}
	return peers, nil
}
