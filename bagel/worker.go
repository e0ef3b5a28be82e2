package bagel

import (
	"context"
	"fmt"
	"log"
	"runtime"
)

// ExecContext is everything a driver needs to know about the partition it
// runs on. One is built per partition and passed to every driver call.
type ExecContext struct {
	PartitionId int
	Partitions  int
	Threads     int
	Stripes     int
	Transport   Transport
	Logger      *log.Logger

	Checkpoints             *CheckpointStore
	StepsBetweenCheckpoints uint64
	Resume                  bool

	Progress ProgressReporter
}

// Progress is a partition's position in the current run.
type Progress struct {
	PartitionId int
	Algorithm   string
	Epoch       uint64
	Frontier    int
	Active      int64
	Done        bool
}

// ProgressReporter receives one Progress per epoch.
type ProgressReporter interface {
	Report(ctx context.Context, p Progress) error
}

// NewExecContext binds a transport with the defaults every driver expects.
func NewExecContext(t Transport, threads int) *ExecContext {
	return &ExecContext{
		PartitionId: t.PartitionId(),
		Partitions:  t.Partitions(),
		Threads:     threads,
		Transport:   t,
	}
}

func (ec *ExecContext) validate(partitionId int, partitions int) error {
	if ec.Transport == nil {
		return fmt.Errorf("%w: no transport", ErrPartitionMismatch)
	}
	if ec.PartitionId != partitionId || ec.Transport.PartitionId() != partitionId {
		return fmt.Errorf(
			"%w: store partition %d, context partition %d, transport partition %d",
			ErrPartitionMismatch, partitionId, ec.PartitionId, ec.Transport.PartitionId(),
		)
	}
	if ec.Partitions != partitions || ec.Transport.Partitions() != partitions {
		return fmt.Errorf(
			"%w: store has %d partitions, transport has %d",
			ErrPartitionMismatch, partitions, ec.Transport.Partitions(),
		)
	}
	return nil
}

func (ec *ExecContext) threads() int {
	if ec.Threads <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return ec.Threads
}

func (ec *ExecContext) logf(format string, args ...interface{}) {
	logger := ec.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger.Printf(format, args...)
}

func (ec *ExecContext) report(ctx context.Context, p Progress) {
	p.PartitionId = ec.PartitionId
	epochGauge.WithLabelValues(p.Algorithm, partitionLabel(ec.Transport)).Set(float64(p.Epoch))
	if ec.Progress == nil {
		return
	}
	if err := ec.Progress.Report(ctx, p); err != nil {
		ec.logf("report: partition %d could not report progress: %v", ec.PartitionId, err)
	}
}
