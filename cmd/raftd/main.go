package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/xmh1011/go-raft/config"
	"github.com/xmh1011/go-raft/logging"
	"github.com/xmh1011/go-raft/node"
)

var cfg struct {
	NodeID    uint64
	PeersStr  string
	DataDir   string
	Transport string
	Storage   string
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "raftd",
		Short: "Runs one Raft consensus node",
		Run:   run,
	}

	rootCmd.Flags().Uint64Var(&cfg.NodeID, "id", 1, "Node ID")
	rootCmd.Flags().StringVar(&cfg.PeersStr, "peers", "1=127.0.0.1:8001,2=127.0.0.1:8002,3=127.0.0.1:8003", "Comma-separated list of peer ID=Address pairs")
	rootCmd.Flags().StringVar(&cfg.DataDir, "data", "raft-data", "Directory to store raft metadata")
	rootCmd.Flags().StringVar(&cfg.Transport, "transport", string(config.TransportGRPC), "Transport: tcp or grpc")
	rootCmd.Flags().StringVar(&cfg.Storage, "storage", string(config.StorageFile), "Metadata storage: file or inmemory")

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

	sink := logging.Tagged{Sink: logging.Default(), Tag: fmt.Sprintf("node-%d", cfg.NodeID)}

	n, err := node.New(config.Config{
		ID:            cfg.NodeID,
		PeerAddresses: peers,
		DataDir:       cfg.DataDir,
		Storage:       config.StorageKind(cfg.Storage),
		Transport:     config.TransportKind(cfg.Transport),
	}, nil, sink)
	if err != nil {
		log.Fatalf("failed to start node: %v", err)
	}

	n.Start()
	sink.Printf("raftd listening, peers=%s", cfg.PeersStr)

	waitForSignal()
	n.Stop()
}

func waitForSignal() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
}

func parsePeers(s string) (map[uint64]string, error) {
	peers := make(map[uint64]string)
	for _, p := range strings.Split(s, ",") {
		parts := strings.SplitN(p, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid peer entry %q", p)
		}
		id, err := strconv.ParseUint(parts[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid peer ID %q: %w", parts[0], err)
		}
		peers[id] = parts[1]
	}
	return peers, nil
}
