package server

import (
	"bufio"
	"context"
	"errors"
	"io"
	"time"

	"github.com/bastiangx/sentserve/internal/logger"
	"github.com/bastiangx/sentserve/pkg/config"
	"github.com/bastiangx/sentserve/pkg/suggest"
	"github.com/charmbracelet/log"
	"github.com/vmihailenco/msgpack/v5"
)

// IPCServer handles msgpack completion requests over a byte stream.
type IPCServer struct {
	completer suggest.ICompleter
	limits    *limitSet
	dec       *msgpack.Decoder
	enc       *msgpack.Encoder
	writer    *bufio.Writer
	log       *log.Logger
	requests  int
}

// NewIPCServer creates a server reading requests from r and writing responses to w.
func NewIPCServer(completer suggest.ICompleter, cfg config.ServerConfig, r io.Reader, w io.Writer) *IPCServer {
	bw := bufio.NewWriter(w)
	enc := msgpack.NewEncoder(bw)
	return &IPCServer{
		completer: completer,
		limits:    newLimitSet(LimitsFromConfig(cfg)),
		dec:       msgpack.NewDecoder(bufio.NewReader(r)),
		enc:       enc,
		writer:    bw,
		log:       logger.New("ipc"),
	}
}

// ApplyConfig swaps the request limits without restarting.
func (s *IPCServer) ApplyConfig(cfg *config.Config) {
	s.limits.store(LimitsFromConfig(cfg.Server))
}

// Start reads requests until the input ends or ctx is cancelled. A clean EOF
// returns nil.
func (s *IPCServer) Start(ctx context.Context) error {
	s.log.Debug("Starting IPC server")
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		var raw msgpack.RawMessage
		if err := s.dec.Decode(&raw); err != nil {
			if errors.Is(err, io.EOF) {
				s.log.Debug("Client disconnected", "requests", s.requests)
				return nil
			}
			s.log.Errorf("Reading request: %v", err)
			return err
		}
		s.requests++

		var req CompletionRequest
		if err := msgpack.Unmarshal(raw, &req); err != nil {
			s.sendError("", "Invalid msgpack request", 400)
			continue
		}
		s.handleRequest(ctx, req)
	}
}

func (s *IPCServer) handleRequest(ctx context.Context, req CompletionRequest) {
	switch req.Action {
	case "", "complete":
		s.handleComplete(ctx, req)
	case "health":
		s.send(StatusResponse{ID: req.ID, Status: "ok"})
	case "stats":
		s.send(StatusResponse{ID: req.ID, Status: "ok", Stats: s.completer.Stats()})
	default:
		s.sendError(req.ID, "Unknown action: "+req.Action, 400)
	}
}

func (s *IPCServer) handleComplete(ctx context.Context, req CompletionRequest) {
	if req.Prefix == "" {
		s.sendError(req.ID, "Missing prefix", 400)
		return
	}
	requested := -1
	if req.Limit != nil {
		if *req.Limit < 0 {
			s.sendError(req.ID, ErrBadLimit.Error(), 400)
			return
		}
		requested = *req.Limit
	}
	limit, err := s.limits.load().resolve(req.Prefix, requested)
	if err != nil {
		s.sendError(req.ID, err.Error(), 400)
		return
	}

	start := time.Now()
	res, err := s.completer.Complete(ctx, req.Prefix, limit)
	if err != nil {
		s.sendError(req.ID, err.Error(), statusFor(err))
		return
	}
	elapsed := time.Since(start)

	suggestions := res.Completions
	if suggestions == nil {
		suggestions = []string{}
	}
	s.send(CompletionResponse{
		ID:          req.ID,
		Suggestions: suggestions,
		Count:       len(suggestions),
		Source:      string(res.Source),
		TimeTaken:   elapsed.Microseconds(),
	})
}

// send encodes and flushes one response.
func (s *IPCServer) send(v any) {
	if err := s.enc.Encode(v); err != nil {
		s.log.Errorf("Encoding response: %v", err)
		return
	}
	if err := s.writer.Flush(); err != nil {
		s.log.Errorf("Writing response: %v", err)
	}
}

func (s *IPCServer) sendError(id, message string, code int) {
	s.send(CompletionError{ID: id, Error: message, Code: code})
}
