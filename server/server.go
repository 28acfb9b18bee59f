package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"sync"

	"github.com/google/uuid"
)

// ReceiptPrinter prints one receipt per call
type ReceiptPrinter[T any] interface {
	PrintReceipt(items []T) error
}

// Response is written back to the client, one JSON line per job
type Response struct {
	ID    string `json:"id"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// Server accepts print jobs over TCP. Each job is a JSON array of items.
type Server[T any] struct {
	printer  ReceiptPrinter[T]
	listener net.Listener
	address  string
	mu       sync.Mutex
	printMu  sync.Mutex
	running  bool
	wg       sync.WaitGroup
	conns    map[net.Conn]struct{}
	logger   *log.Logger
}

// New creates a new server instance
func New[T any](printer ReceiptPrinter[T], address string) *Server[T] {
	logger := log.New(os.Stdout, "[SERVER] ", log.LstdFlags|log.Lmsgprefix)
	return NewWithLogger(printer, address, logger)
}

// NewWithLogger creates a new server instance with a custom logger
func NewWithLogger[T any](printer ReceiptPrinter[T], address string, logger *log.Logger) *Server[T] {
	return &Server[T]{
		printer: printer,
		address: address,
		conns:   make(map[net.Conn]struct{}),
		logger:  logger,
	}
}

func (s *Server[T]) listen(mode string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Printf("Starting server on %s (%s mode)", s.address, mode)

	if s.running {
		s.logger.Println("Error: Server already running")
		return fmt.Errorf("server already running")
	}

	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		s.logger.Printf("Error: Failed to start server: %v", err)
		return fmt.Errorf("failed to start server: %w", err)
	}

	s.listener = listener
	s.running = true
	s.logger.Printf("Server listening on %s", listener.Addr())

	return nil
}

// Start starts the TCP server and blocks until Stop is called
func (s *Server[T]) Start() error {
	if err := s.listen("blocking"); err != nil {
		return err
	}

	s.wg.Add(1)
	s.acceptConnections()

	return nil
}

// StartAsync starts the TCP server in a goroutine (non-blocking)
func (s *Server[T]) StartAsync() error {
	if err := s.listen("async"); err != nil {
		return err
	}

	s.wg.Add(1)
	go s.acceptConnections()
	s.logger.Println("Server started in background, ready to accept connections")

	return nil
}

// acceptConnections handles incoming client connections
func (s *Server[T]) acceptConnections() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if !s.IsRunning() {
				s.logger.Println("Server shutting down, stopping accept loop")
				return
			}
			s.logger.Printf("Error accepting connection: %v", err)
			continue
		}

		s.mu.Lock()
		if !s.running {
			s.mu.Unlock()
			conn.Close()
			return
		}
		s.conns[conn] = struct{}{}
		s.wg.Add(1)
		s.mu.Unlock()

		s.logger.Printf("Client connected from %s", conn.RemoteAddr())
		go s.handleConnection(conn)
	}
}

// handleConnection decodes jobs from a single client until it disconnects
func (s *Server[T]) handleConnection(conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		conn.Close()
		s.logger.Printf("Client disconnected: %s", conn.RemoteAddr())
	}()

	clientAddr := conn.RemoteAddr().String()
	dec := json.NewDecoder(conn)
	enc := json.NewEncoder(conn)

	for {
		var items []T
		err := dec.Decode(&items)
		if err != nil {
			if errors.Is(err, io.EOF) || !s.IsRunning() {
				return
			}
			var netErr net.Error
			if errors.As(err, &netErr) {
				s.logger.Printf("Error reading from client %s: %v", clientAddr, err)
				return
			}
			s.logger.Printf("Malformed job from %s: %v", clientAddr, err)
			resp := Response{OK: false, Error: fmt.Sprintf("malformed job: %v", err)}
			if err := enc.Encode(resp); err != nil {
				s.logger.Printf("Error writing to client %s: %v", clientAddr, err)
			}
			return
		}

		resp := s.print(items)
		if err := enc.Encode(resp); err != nil {
			s.logger.Printf("Error writing to client %s: %v", clientAddr, err)
			return
		}
	}
}

// print runs one job; jobs from different clients never overlap on the printer
func (s *Server[T]) print(items []T) Response {
	id := uuid.NewString()
	s.logger.Printf("Job %s: printing %d items", id, len(items))

	s.printMu.Lock()
	err := s.printer.PrintReceipt(items)
	s.printMu.Unlock()

	if err != nil {
		s.logger.Printf("Job %s failed: %v", id, err)
		return Response{ID: id, OK: false, Error: err.Error()}
	}

	s.logger.Printf("Job %s printed", id)
	return Response{ID: id, OK: true}
}

// Stop stops the TCP server and disconnects all clients
func (s *Server[T]) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		s.logger.Println("Stop called but server is not running")
		return nil
	}

	s.logger.Println("Stopping server...")
	s.running = false
	listener := s.listener
	for conn := range s.conns {
		conn.Close()
	}
	s.mu.Unlock()

	if listener != nil {
		listener.Close()
	}

	s.wg.Wait()
	s.logger.Println("Server stopped successfully")
	return nil
}

// IsRunning returns whether the server is running
func (s *Server[T]) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Address returns the server address
func (s *Server[T]) Address() string {
	return s.address
}

// ListenAddr returns the bound listener address, or nil when not running
func (s *Server[T]) ListenAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// GetPrinter returns the underlying printer
func (s *Server[T]) GetPrinter() ReceiptPrinter[T] {
	return s.printer
}
