package singleinstance

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"strconv"
	"sync"
	"time"
)

const handshakeTimeout = 3 * time.Second

// ErrAlreadyRunning is returned by Start when another resident answers PING.
var ErrAlreadyRunning = errors.New("a resident instance is already running")

// Server owns a loopback port and hands delegated requests to the caller.
type Server struct {
	Ports PortRange

	mu       sync.Mutex
	lis      net.Listener
	port     int
	incoming chan *Conn
	done     chan struct{}
	once     sync.Once
}

func NewServer(ports PortRange) *Server {
	return &Server{
		Ports:    ports.normalize(),
		incoming: make(chan *Conn, 1),
		done:     make(chan struct{}),
	}
}

// Start refuses to run beside another resident, then binds the first free
// port in the range and starts accepting.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lis != nil {
		return nil
	}

	probe := &Client{Ports: s.Ports, Timeout: 300 * time.Millisecond}
	if port, ok := probe.Detect(ctx); ok {
		return fmt.Errorf("%w on port %d", ErrAlreadyRunning, port)
	}

	var lc net.ListenConfig
	for port := s.Ports.Start; port <= s.Ports.End; port++ {
		addr := net.JoinHostPort(residentHost, strconv.Itoa(port))
		lis, err := lc.Listen(ctx, "tcp", addr)
		if err != nil {
			continue
		}
		s.lis = lis
		s.port = port
		log.Printf("singleinstance: listening on %s", addr)
		go s.acceptLoop(lis)
		return nil
	}
	return fmt.Errorf("%w [%d-%d]", ErrNoPortAvailable, s.Ports.Start, s.Ports.End)
}

// Port returns the bound port, or 0 before Start.
func (s *Server) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port
}

func (s *Server) acceptLoop(lis net.Listener) {
	for {
		c, err := lis.Accept()
		if err != nil {
			return
		}
		go s.handshake(c)
	}
}

func (s *Server) handshake(c net.Conn) {
	remote := c.RemoteAddr().String()
	_ = c.SetDeadline(time.Now().Add(handshakeTimeout))
	br := bufio.NewReader(c)
	bw := bufio.NewWriter(c)

	line, err := readLine(br)
	if err != nil {
		_ = c.Close()
		return
	}
	if line == linePing {
		_ = writeLine(bw, linePong)
		_ = c.Close()
		return
	}
	req, err := parseRequest(line)
	if err != nil {
		log.Printf("singleinstance: %v from %s", err, remote)
		_ = writeLine(bw, lineError)
		_, _ = bw.WriteString(err.Error())
		_ = bw.Flush()
		_ = c.Close()
		return
	}
	_ = c.SetDeadline(time.Time{})
	log.Printf("singleinstance: request from %s stdout=%v", remote, req.OutputToStdout)

	select {
	case s.incoming <- &Conn{c: c, req: req, w: bw}:
	case <-s.done:
		_ = c.Close()
	}
}

// Next returns the next delegated request.
func (s *Server) Next(ctx context.Context) (*Conn, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.done:
		return nil, ErrClosed
	case c := <-s.incoming:
		return c, nil
	}
}

// Close stops accepting and releases the port.
func (s *Server) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.lis != nil {
			err = s.lis.Close()
		}
	})
	return err
}

// Conn is one accepted delegated request awaiting its response.
type Conn struct {
	c   net.Conn
	req Request
	w   *bufio.Writer
}

func (c *Conn) Request() Request { return c.req }

// RespondSuccess sends the payload: recognized text for stdout requests,
// otherwise whatever the pipeline reports (such as the saved path).
func (c *Conn) RespondSuccess(payload string) error {
	if err := writeLine(c.w, lineSuccess); err != nil {
		return err
	}
	if _, err := c.w.WriteString(payload); err != nil {
		return err
	}
	return c.w.Flush()
}

func (c *Conn) RespondError(msg string) error {
	if err := writeLine(c.w, lineError); err != nil {
		return err
	}
	if _, err := c.w.WriteString(msg); err != nil {
		return err
	}
	return c.w.Flush()
}

func (c *Conn) Close() error { return c.c.Close() }
