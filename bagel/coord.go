package bagel

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/improbable-eng/grpc-web/go/grpcweb"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// Coord collects the progress reported by every partition of a run and
// serves it over gRPC, grpc-web and a JSON HTTP API on a single address.
type Coord struct {
	mu       sync.Mutex
	progress map[int]Progress

	grpcServer *grpc.Server
	httpServer *http.Server
	listener   net.Listener
}

func NewCoord() *Coord {
	c := &Coord{
		progress:   make(map[int]Progress),
		grpcServer: grpc.NewServer(),
	}
	c.grpcServer.RegisterService(&coordServiceDesc, coordService{c})
	return c
}

// Report records p, replacing the previous progress of its partition.
func (c *Coord) Report(ctx context.Context, p Progress) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.progress[p.PartitionId] = p
	return nil
}

func (c *Coord) Snapshot() map[int]Progress {
	c.mu.Lock()
	defer c.mu.Unlock()
	snapshot := make(map[int]Progress, len(c.progress))
	for id, p := range c.progress {
		snapshot[id] = p
	}
	return snapshot
}

// coordService adapts Coord to the gRPC service.
type coordService struct {
	c *Coord
}

func (s coordService) Progress(ctx context.Context, in *emptypb.Empty) (*structpb.Struct, error) {
	return progressSnapshot(s.c.Snapshot())
}

func (s coordService) Report(ctx context.Context, in *structpb.Struct) (*emptypb.Empty, error) {
	p := progressFromStruct(in)
	log.Printf("Report: partition %d at epoch %d (done: %v)\n", p.PartitionId, p.Epoch, p.Done)
	return &emptypb.Empty{}, s.c.Report(ctx, p)
}

func (c *Coord) GetProgress(context *gin.Context) {
	snapshot := c.Snapshot()
	partitions := make(gin.H, len(snapshot))
	for id, p := range snapshot {
		partitions[strconv.Itoa(id)] = p.toMap()
	}
	context.JSON(http.StatusOK, gin.H{"partitions": partitions})
}

func (c *Coord) GetPartitionProgress(context *gin.Context) {
	id, err := strconv.Atoi(context.Param("partition"))
	if err != nil {
		context.JSON(http.StatusBadRequest, gin.H{"error": "partition must be an integer"})
		return
	}
	p, ok := c.Snapshot()[id]
	if !ok {
		context.JSON(http.StatusNotFound, gin.H{"error": "no progress reported for partition " + strconv.Itoa(id)})
		return
	}
	context.JSON(http.StatusOK, p.toMap())
}

// Router serves the JSON API and prometheus metrics.
func (c *Coord) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	externalAPI := router.Group("/api")
	{
		externalAPI.GET("/progress", c.GetProgress)
		externalAPI.GET("/progress/:partition", c.GetPartitionProgress)
	}
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return router
}

type grpcMultiplexer struct {
	*grpcweb.WrappedGrpcServer
	grpcServer *grpc.Server
}

// Handler is used to route requests to either grpc or to regular http
func (m *grpcMultiplexer) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			if m.IsGrpcWebRequest(r) {
				m.ServeHTTP(w, r)
				return
			}
			if r.ProtoMajor == 2 && strings.HasPrefix(r.Header.Get("Content-Type"), "application/grpc") {
				m.grpcServer.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		},
	)
}

// Handler multiplexes native gRPC (over cleartext HTTP/2), grpc-web and
// the HTTP API.
func (c *Coord) Handler() http.Handler {
	multiplex := grpcMultiplexer{
		WrappedGrpcServer: grpcweb.WrapServer(c.grpcServer),
		grpcServer:        c.grpcServer,
	}
	return h2c.NewHandler(multiplex.Handler(c.Router()), &http2.Server{})
}

// Start listens on addr and serves in the background.
func (c *Coord) Start(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		log.Printf("Start: coord could not listen on %v: %v\n", addr, err)
		return err
	}
	c.listener = lis
	c.httpServer = &http.Server{
		Handler:     c.Handler(),
		ReadTimeout: 15 * time.Second,
	}
	go func() {
		if err := c.httpServer.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Start: coord stopped serving: %v\n", err)
		}
	}()
	log.Printf("Start: coord listening on %v\n", lis.Addr())
	return nil
}

func (c *Coord) Addr() string {
	if c.listener == nil {
		return ""
	}
	return c.listener.Addr().String()
}

func (c *Coord) Close() error {
	c.grpcServer.Stop()
	if c.httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return c.httpServer.Shutdown(ctx)
}
