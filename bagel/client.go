package bagel

import (
	"context"
	"log"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"project/util"
)

type ClientConfig struct {
	ClientId  string
	CoordAddr string
}

// CoordConfig configures a standalone coord (cmd/coord).
type CoordConfig struct {
	CoordAddr string
}

// GraphClient talks to a Coord over gRPC. Workers use it to report
// progress, cmd/client to follow a run.
type GraphClient struct {
	clientId string
	conn     *grpc.ClientConn
}

func NewClient() *GraphClient {
	return &GraphClient{}
}

// Start dials the coord. The connection is established lazily.
func (c *GraphClient) Start(clientId string, coordAddr string) error {
	conn, err := util.DialGRPC(coordAddr)
	if err != nil {
		return err
	}
	c.clientId = clientId
	c.conn = conn
	return nil
}

func (c *GraphClient) Report(ctx context.Context, p Progress) error {
	in, err := p.toStruct()
	if err != nil {
		return err
	}
	return c.conn.Invoke(ctx, reportMethod, in, new(emptypb.Empty))
}

func (c *GraphClient) Progress(ctx context.Context) (map[int]Progress, error) {
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, progressMethod, new(emptypb.Empty), out); err != nil {
		return nil, err
	}
	return progressFromSnapshot(out)
}

// WaitDone polls the coord every interval, handing each snapshot to fn,
// until partitions partitions have reported completion.
func (c *GraphClient) WaitDone(
	ctx context.Context, partitions int, interval time.Duration,
	fn func(map[int]Progress),
) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		progress, err := c.Progress(ctx)
		if err != nil {
			log.Printf("WaitDone: %v: error polling progress: %v\n", c.clientId, err)
		} else {
			if fn != nil {
				fn(progress)
			}
			done := 0
			for _, p := range progress {
				if p.Done {
					done++
				}
			}
			if done >= partitions {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *GraphClient) Stop() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}
