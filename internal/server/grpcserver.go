package server

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/S0me0neR0man/ourledger/internal/config"
	"github.com/S0me0neR0man/ourledger/internal/ledgerdb"
	"github.com/S0me0neR0man/ourledger/internal/memory"
	"github.com/S0me0neR0man/ourledger/internal/objects"
	"github.com/S0me0neR0man/ourledger/internal/token"
)

// RequestIDHeader is sent back with every response.
const RequestIDHeader = "x-request-id"

var (
	errMissingMetadata = status.Errorf(codes.Unauthenticated, "missing metadata")
	errInvalidToken    = status.Errorf(codes.Unauthenticated, "invalid token")
)

type GRPCServer struct {
	manager *memory.Manager
	conf    *config.Config
	sugar   *zap.SugaredLogger
	logger  *zap.Logger

	gserv *grpc.Server
	wg    sync.WaitGroup
}

func NewLedgerServer(manager *memory.Manager, conf *config.Config, logger *zap.Logger) *GRPCServer {
	ss := &GRPCServer{
		manager: manager,
		conf:    conf,
		logger:  logger,
		sugar:   logger.Sugar(),
	}

	ss.gserv = grpc.NewServer(
		grpc.ChainUnaryInterceptor(ss.logRequest, ss.ensureValidToken),
	)
	return ss
}

// Mount opens the ledger of kind and serves it under kind.Service.
// It must be called before Serve.
func Mount[T, P any](ss *GRPCServer, kind objects.Kind[T, P]) (*ledgerdb.Ledger[T, P], error) {
	l, err := ledgerdb.Open(ss.manager, kind.Shape, ss.logger,
		ledgerdb.WithMaxRecordSize(ss.conf.MaxRecordSize))
	if err != nil {
		return nil, err
	}

	registerLedger(ss.gserv, kind, l)
	ss.sugar.Infow("service mounted", "service", kind.Service)
	return l, nil
}

// Start listens on conf.Listen and serves until ctx is done.
func (ss *GRPCServer) Start(ctx context.Context) error {
	lis, err := net.Listen("tcp", ss.conf.Listen)
	if err != nil {
		return err
	}
	return ss.Serve(ctx, lis)
}

func (ss *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	interval, err := ss.conf.CompactInterval()
	if err != nil {
		return err
	}

	ss.wg.Add(2)
	go ss.compact(ctx, interval)
	go ss.gracefulStop(ctx)

	ss.sugar.Infow("grpcserver start", "addr", lis.Addr().String())
	return ss.gserv.Serve(lis)
}

// compact runs backend compaction every interval; 0 disables it.
func (ss *GRPCServer) compact(ctx context.Context, interval time.Duration) {
	defer ss.wg.Done()

	if interval == 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := ss.manager.Compact(); err != nil {
				ss.sugar.Errorw("manager.Compact", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

func (ss *GRPCServer) gracefulStop(ctx context.Context) {
	defer ss.wg.Done()

	<-ctx.Done()
	ss.gserv.GracefulStop()
	ss.sugar.Infow("grpcserver stopped")
}

func (ss *GRPCServer) Wait() {
	ss.wg.Wait()
}

func (ss *GRPCServer) ensureValidToken(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	if ss.conf.Token == "" {
		return handler(ctx, req)
	}

	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return nil, errMissingMetadata
	}
	// The keys within metadata.MD are normalized to lowercase.
	if !token.Valid(md[token.MetadataKey], ss.conf.Token) {
		return nil, errInvalidToken
	}
	return handler(ctx, req)
}

func (ss *GRPCServer) logRequest(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	id := uuid.NewString()
	start := time.Now()

	if err := grpc.SetHeader(ctx, metadata.Pairs(RequestIDHeader, id)); err != nil {
		ss.sugar.Warnw("set request id header", "error", err)
	}

	resp, err := handler(ctx, req)

	code := status.Code(err)
	fields := []interface{}{
		"method", info.FullMethod,
		"request_id", id,
		"code", code.String(),
		"latency", time.Since(start),
	}
	if code == codes.Internal {
		ss.sugar.Errorw("request failed", append(fields, "error", err)...)
	} else {
		ss.sugar.Debugw("request", fields...)
	}
	return resp, err
}

// toStatus maps ledger errors onto gRPC codes.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, ledgerdb.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, ledgerdb.ErrInvalidInput):
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
