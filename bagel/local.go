package bagel

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// LocalCluster runs every partition inside this process, one goroutine per
// partition, exchanging payloads through shared mailboxes.
type LocalCluster struct {
	partitions int
	boxes      *mailboxes
}

func NewLocalCluster(partitions int) *LocalCluster {
	return &LocalCluster{
		partitions: partitions,
		boxes:      newMailboxes(partitions, partitions),
	}
}

func (c *LocalCluster) Partitions() int {
	return c.partitions
}

// Transport returns the endpoint of one partition. Each endpoint must be
// used by a single goroutine.
func (c *LocalCluster) Transport(partitionId int) Transport {
	return &localTransport{cluster: c, partitionId: partitionId}
}

// Run calls fn once per partition concurrently and waits for all of them.
// The first error cancels the context handed to the others so no partition
// stays blocked on a barrier its peer will never reach.
func (c *LocalCluster) Run(ctx context.Context, fn func(ctx context.Context, t Transport) error) error {
	g, ctx := errgroup.WithContext(ctx)
	for p := 0; p < c.partitions; p++ {
		t := c.Transport(p)
		g.Go(func() error {
			if err := fn(ctx, t); err != nil {
				return fmt.Errorf("partition %d: %w", t.PartitionId(), err)
			}
			return nil
		})
	}
	return g.Wait()
}

type localTransport struct {
	cluster     *LocalCluster
	partitionId int
	superstep   uint64
}

func (t *localTransport) PartitionId() int {
	return t.partitionId
}

func (t *localTransport) Partitions() int {
	return t.cluster.partitions
}

func (t *localTransport) Exchange(ctx context.Context, payload []byte) ([][]byte, error) {
	step := t.superstep
	t.superstep++
	if err := t.cluster.boxes.deposit(step, t.partitionId, payload); err != nil {
		return nil, err
	}
	return t.cluster.boxes.wait(ctx, step, nil)
}
