package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"sync"
	"time"

	"github.com/mdlayher/vsock"

	"github.com/cloudx-io/escrowauction/core"
	"github.com/cloudx-io/escrowauction/custody"
	"github.com/cloudx-io/escrowauction/receipt"
)

const (
	readTimeout  = 30 * time.Second
	writeTimeout = 30 * time.Second
)

// Server owns the engine, its ledger and the receipt signer.
type Server struct {
	cfg      Config
	clock    core.Clock
	world    *custody.World
	engine   *core.Engine
	keys     *receipt.KeyManager
	receipts *receipt.Notifier

	// attester is looked up per key_request; outside an enclave it fails.
	attester func() (receipt.Attester, error)

	// stateMu is held shared by mutating requests and exclusively while a snapshot is
	// written, so the registry and ledger snapshots agree.
	stateMu sync.RWMutex
}

// NewServer wires the engine to an in-memory ledger operated by the escrow account and
// restores persisted state if cfg.StateFile exists.
func NewServer(cfg Config, clock core.Clock) (*Server, error) {
	keys, err := receipt.NewKeyManager()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize key manager: %w", err)
	}
	log.Printf("INFO: Receipt KeyManager initialized (%s)", receipt.KeyAlgorithm)

	s := &Server{
		cfg:      cfg,
		clock:    clock,
		world:    custody.NewWorld(cfg.Escrow),
		keys:     keys,
		receipts: receipt.NewNotifier(keys),
		attester: receipt.NitroAttester,
	}

	registry := core.NewRegistry()
	if err := s.loadState(registry); err != nil {
		return nil, err
	}

	engine, err := core.NewEngine(core.Config{
		Escrow:   cfg.Escrow,
		Custody:  s.world,
		Value:    s.world,
		Notifier: core.MultiNotifier{core.LogNotifier{}, s.receipts},
		Clock:    clock,
		Registry: registry,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize engine: %w", err)
	}
	s.engine = engine
	return s, nil
}

func (s *Server) listen() (net.Listener, error) {
	if s.cfg.Transport == TransportTCP {
		listener, err := net.Listen("tcp", fmt.Sprintf(":%d", s.cfg.Port))
		if err != nil {
			return nil, fmt.Errorf("failed to create tcp listener: %w", err)
		}
		return listener, nil
	}
	listener, err := vsock.Listen(s.cfg.Port, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create vsock listener: %w", err)
	}
	return listener, nil
}

// Start listens on the configured transport and serves until the listener fails.
func (s *Server) Start() error {
	listener, err := s.listen()
	if err != nil {
		return err
	}
	defer func() {
		if err := listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			log.Printf("ERROR: Failed to close listener: %v", err)
		}
	}()

	log.Printf("INFO: auctiond listening on %s port %d (escrow %s)", s.cfg.Transport, s.cfg.Port, s.cfg.Escrow)
	return s.Serve(listener)
}

// Serve accepts connections on listener and handles each on a bounded worker pool.
// Connections arriving while every worker is busy are closed immediately.
func (s *Server) Serve(listener net.Listener) error {
	maxWorkers := s.cfg.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = 1
	}
	semaphore := make(chan struct{}, maxWorkers)

	log.Printf("INFO: Worker pool initialized with %d max concurrent workers", maxWorkers)

	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			log.Printf("ERROR: Failed to accept connection: %v", err)
			continue
		}

		// Acquire worker slot - immediate rejection if pool full
		select {
		case semaphore <- struct{}{}:
			go func(c net.Conn) {
				defer func() { <-semaphore }() // Release worker slot
				s.handleConnection(c)
			}(conn)
		default:
			log.Printf("INFO: No workers available, rejecting connection (pool full)")
			if err := conn.Close(); err != nil {
				log.Printf("ERROR: Failed to close rejected connection: %v", err)
			}
		}
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("ERROR: Panic recovered in handleConnection: %v", r)
		}
		if err := conn.Close(); err != nil {
			log.Printf("ERROR: Failed to close connection: %v", err)
		}
	}()

	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, conn); err != nil {
		log.Printf("ERROR: Failed to read request: %v", err)
		return
	}

	response := s.handleRequest(context.Background(), buf.Bytes())

	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	encoder := json.NewEncoder(conn)
	if err := encoder.Encode(response); err != nil {
		log.Printf("ERROR: Failed to encode response: %v", err)
	}
}
