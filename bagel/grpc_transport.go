package bagel

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"log"
	"math"
	"math/rand"
	"net"
	"sync"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	fchecker "project/fcheck"
	"project/util"
)

// envelope is the body of a Deliver call.
type envelope struct {
	Superstep uint64
	From      int
	Payload   []byte
}

// GRPCTransport connects one partition process to its peers. Each peer
// pushes its payload for a superstep to every other peer with a Deliver
// call; a superstep completes once all of them arrived.
type GRPCTransport struct {
	partitionId int
	partitions  int
	superstep   uint64

	listener net.Listener
	server   *grpc.Server
	boxes    *mailboxes
	conns    []*grpc.ClientConn

	detector   *fchecker.Detector
	failed     chan struct{}
	failOnce   sync.Once
	failure    error
	stopNotify chan struct{}
}

// ListenGRPC starts serving Deliver for partitionId out of partitions on
// listenAddr. Call Connect before the first Exchange.
func ListenGRPC(partitionId int, partitions int, listenAddr string) (*GRPCTransport, error) {
	if partitionId < 0 || partitionId >= partitions {
		return nil, fmt.Errorf("partition id %d out of range [0,%d)", partitionId, partitions)
	}
	lis, err := net.Listen("tcp", listenAddr)
	if err != nil {
		log.Printf("ListenGRPC: error listening on %v: %v\n", listenAddr, err)
		return nil, err
	}

	t := &GRPCTransport{
		partitionId: partitionId,
		partitions:  partitions,
		listener:    lis,
		server:      grpc.NewServer(grpc.MaxRecvMsgSize(math.MaxInt32)),
		boxes:       newMailboxes(partitions, 1),
		failed:      make(chan struct{}),
		stopNotify:  make(chan struct{}),
	}
	t.server.RegisterService(&exchangeServiceDesc, t)
	go func() {
		if err := t.server.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			log.Printf("ListenGRPC: partition %d stopped serving: %v\n", partitionId, err)
		}
	}()
	log.Printf("ListenGRPC: partition %d listening at %v\n", partitionId, lis.Addr())
	return t, nil
}

func (t *GRPCTransport) Addr() string {
	return t.listener.Addr().String()
}

// Connect dials every peer; peers[i] is the listen address of partition i.
// Dialing does not wait for peers to be up.
func (t *GRPCTransport) Connect(peers []string) error {
	if len(peers) != t.partitions {
		return fmt.Errorf("%w: %d peers for %d partitions", ErrPartitionMismatch, len(peers), t.partitions)
	}
	t.conns = make([]*grpc.ClientConn, t.partitions)
	for p, addr := range peers {
		if p == t.partitionId {
			continue
		}
		conn, err := util.DialGRPC(addr, grpc.WithDefaultCallOptions(
			grpc.MaxCallSendMsgSize(math.MaxInt32),
			grpc.WaitForReady(true),
		))
		if err != nil {
			return fmt.Errorf("dial partition %d at %v: %w", p, addr, err)
		}
		t.conns[p] = conn
	}
	return nil
}

// MonitorPeers answers heartbeats on heartbeatAddrs[partitionId] and
// monitors every other address. A lost peer fails the current and every
// later Exchange with ErrPeerFailed.
func (t *GRPCTransport) MonitorPeers(heartbeatAddrs []string, lostMsgsThresh uint8) error {
	if len(heartbeatAddrs) != t.partitions {
		return fmt.Errorf("%w: %d heartbeat addresses for %d partitions", ErrPartitionMismatch, len(heartbeatAddrs), t.partitions)
	}
	detector, err := fchecker.Start(heartbeatAddrs[t.partitionId])
	if err != nil {
		return err
	}
	t.detector = detector

	epochNonce := rand.Uint64()
	for p, addr := range heartbeatAddrs {
		if p == t.partitionId {
			continue
		}
		if err := detector.Monitor(addr, epochNonce, lostMsgsThresh); err != nil {
			return err
		}
	}

	go func() {
		select {
		case notify := <-detector.Notify():
			log.Printf("MonitorPeers: partition %d detected failure of %v\n", t.partitionId, notify.UDPIpPort)
			t.fail(fmt.Errorf("%w: %v at %v", ErrPeerFailed, notify.UDPIpPort, notify.Timestamp))
		case <-t.stopNotify:
		}
	}()
	return nil
}

func (t *GRPCTransport) fail(err error) {
	t.failOnce.Do(func() {
		t.failure = err
		close(t.failed)
	})
}

func (t *GRPCTransport) PartitionId() int {
	return t.partitionId
}

func (t *GRPCTransport) Partitions() int {
	return t.partitions
}

// Deliver is the gRPC handler receiving a peer's payload.
func (t *GRPCTransport) Deliver(ctx context.Context, in *wrapperspb.BytesValue) (*emptypb.Empty, error) {
	var env envelope
	if err := gob.NewDecoder(bytes.NewReader(in.GetValue())).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if err := t.boxes.deposit(env.Superstep, env.From, env.Payload); err != nil {
		return nil, err
	}
	return &emptypb.Empty{}, nil
}

func (t *GRPCTransport) Exchange(ctx context.Context, payload []byte) ([][]byte, error) {
	step := t.superstep
	t.superstep++

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-t.failed:
			cancel()
		case <-ctx.Done():
		}
	}()

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(envelope{Superstep: step, From: t.partitionId, Payload: payload}); err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	body := &wrapperspb.BytesValue{Value: buf.Bytes()}

	if err := t.boxes.deposit(step, t.partitionId, payload); err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	for p, conn := range t.conns {
		if conn == nil {
			continue
		}
		p, conn := p, conn
		g.Go(func() error {
			if err := conn.Invoke(gctx, deliverMethod, body, new(emptypb.Empty)); err != nil {
				return fmt.Errorf("deliver superstep %d to partition %d: %w", step, p, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, t.cause(err)
	}

	incoming, err := t.boxes.wait(ctx, step, t.failed)
	if err != nil {
		return nil, t.cause(err)
	}
	return incoming, nil
}

// cause prefers the detected peer failure over the error it provoked.
func (t *GRPCTransport) cause(err error) error {
	select {
	case <-t.failed:
		return t.failure
	default:
		return err
	}
}

func (t *GRPCTransport) Close() error {
	close(t.stopNotify)
	if t.detector != nil {
		t.detector.Stop()
	}
	for _, conn := range t.conns {
		if conn != nil {
			conn.Close()
		}
	}
	t.server.GracefulStop()
	return nil
}
