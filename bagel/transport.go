package bagel

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"project/graph"
)

// Transport is a synchronous all-to-all exchange between partitions.
//
// Exchange hands payload to every partition (the caller included) and
// returns the payloads of every partition for the same superstep, indexed by
// sender. It returns only once every partition has sent, so a returned call
// is a barrier; an error means the superstep did not complete.
type Transport interface {
	PartitionId() int
	Partitions() int
	Exchange(ctx context.Context, payload []byte) ([][]byte, error)
}

// Options tune a single broadcast.
type Options struct {
	// Concurrency bounds the goroutines running recv. 1 gives recv
	// single-writer semantics.
	Concurrency int
}

// Broadcast runs one superstep: send is called for every vertex of view and
// may emit any number of messages, which are delivered to every partition;
// recv runs once per delivered message and the sum of its results is
// returned.
func Broadcast[V graph.ID, M any](
	ctx context.Context,
	t Transport,
	view graph.View[V],
	send func(emit func(M), v V),
	recv func(from int, msg M) int,
	opts Options,
) (int, error) {
	var outgoing []M
	view.Each(func(v V) {
		send(func(msg M) { outgoing = append(outgoing, msg) }, v)
	})
	return exchange(ctx, t, outgoing, recv, opts)
}

// BroadcastOnce delivers exactly one message from every partition.
func BroadcastOnce[M any](
	ctx context.Context,
	t Transport,
	msg M,
	recv func(from int, msg M) int,
	opts Options,
) (int, error) {
	return exchange(ctx, t, []M{msg}, recv, opts)
}

// AllReduceSum adds value across partitions.
func AllReduceSum(ctx context.Context, t Transport, value int64) (int64, error) {
	var sum int64
	_, err := BroadcastOnce(ctx, t, value, func(_ int, v int64) int {
		sum += v
		return 1
	}, Options{Concurrency: 1})
	return sum, err
}

// AllReduceMin takes the minimum of value across partitions.
func AllReduceMin(ctx context.Context, t Transport, value int64) (int64, error) {
	lowest := value
	_, err := BroadcastOnce(ctx, t, value, func(_ int, v int64) int {
		if v < lowest {
			lowest = v
		}
		return 1
	}, Options{Concurrency: 1})
	return lowest, err
}

func exchange[M any](
	ctx context.Context,
	t Transport,
	outgoing []M,
	recv func(from int, msg M) int,
	opts Options,
) (int, error) {
	payload, err := encodeBatch(outgoing)
	if err != nil {
		return 0, err
	}
	messagesSent.WithLabelValues(partitionLabel(t)).Add(float64(len(outgoing)))

	incoming, err := t.Exchange(ctx, payload)
	if err != nil {
		return 0, err
	}

	batches := make([][]M, len(incoming))
	for from, p := range incoming {
		if batches[from], err = decodeBatch[M](p); err != nil {
			return 0, fmt.Errorf("decode batch from partition %d: %w", from, err)
		}
	}

	if opts.Concurrency <= 1 {
		total := 0
		for from, batch := range batches {
			for _, msg := range batch {
				total += recv(from, msg)
			}
		}
		return total, nil
	}

	var total int64
	g := new(errgroup.Group)
	g.SetLimit(opts.Concurrency)
	for from, batch := range batches {
		for _, msg := range batch {
			from, msg := from, msg
			g.Go(func() error {
				atomic.AddInt64(&total, int64(recv(from, msg)))
				return nil
			})
		}
	}
	err = g.Wait()
	return int(total), err
}

func encodeBatch[M any](batch []M) ([]byte, error) {
	if len(batch) == 0 {
		return nil, nil
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(batch); err != nil {
		return nil, fmt.Errorf("encode batch: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeBatch[M any](payload []byte) ([]M, error) {
	var batch []M
	if len(payload) == 0 {
		return nil, nil
	}
	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&batch); err != nil {
		return nil, err
	}
	return batch, nil
}

// mailboxes collects the payloads of each superstep until every partition
// has delivered.
type mailboxes struct {
	mu         sync.Mutex
	partitions int
	readers    int
	boxes      map[uint64]*mailbox
}

type mailbox struct {
	payloads [][]byte
	present  []bool
	received int
	reads    int
	done     chan struct{}
}

func newMailboxes(partitions int, readers int) *mailboxes {
	return &mailboxes{
		partitions: partitions,
		readers:    readers,
		boxes:      make(map[uint64]*mailbox),
	}
}

// get must be called with mu held.
func (m *mailboxes) get(step uint64) *mailbox {
	box, ok := m.boxes[step]
	if !ok {
		box = &mailbox{
			payloads: make([][]byte, m.partitions),
			present:  make([]bool, m.partitions),
			done:     make(chan struct{}),
		}
		m.boxes[step] = box
	}
	return box
}

func (m *mailboxes) deposit(step uint64, from int, payload []byte) error {
	if from < 0 || from >= m.partitions {
		return fmt.Errorf("deposit: sender %d out of range [0,%d)", from, m.partitions)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	box := m.get(step)
	if box.present[from] {
		return fmt.Errorf("%w %d from partition %d", ErrDuplicateDelivery, step, from)
	}
	box.payloads[from] = payload
	box.present[from] = true
	box.received++
	if box.received == m.partitions {
		close(box.done)
	}
	return nil
}

// wait blocks until every partition delivered for step, ctx is done or
// failed is closed.
func (m *mailboxes) wait(ctx context.Context, step uint64, failed <-chan struct{}) ([][]byte, error) {
	m.mu.Lock()
	box := m.get(step)
	m.mu.Unlock()

	select {
	case <-box.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-failed:
		return nil, ErrPeerFailed
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	box.reads++
	if box.reads == m.readers {
		delete(m.boxes, step)
	}
	return box.payloads, nil
}
