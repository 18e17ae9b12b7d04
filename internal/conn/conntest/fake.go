// Package conntest provides an in-memory conn.Dialer for tests.
package conntest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/soltixdb/rediswatch/internal/conn"
)

// ErrRefused is what a failing dial reports
var ErrRefused = errors.New("connect: connection refused")

// Server scripts the replies of one address. Commands are keyed by their
// upper-cased, space-joined arguments, e.g. "CLUSTER NODES".
type Server struct {
	mu        sync.Mutex
	text      map[string]string
	slices    map[string][]interface{}
	errs      map[string]error
	failDials int
	dials     int
	closed    int
	commands  []string
}

// NewServer creates an empty scripted server
func NewServer() *Server {
	return &Server{
		text:   make(map[string]string),
		slices: make(map[string][]interface{}),
		errs:   make(map[string]error),
	}
}

// Reply scripts a string reply
func (s *Server) Reply(command, reply string) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.text[command] = reply
	return s
}

// ReplySlice scripts an array reply
func (s *Server) ReplySlice(command string, reply ...interface{}) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slices[command] = reply
	return s
}

// Fail scripts an error for command
func (s *Server) Fail(command string, err error) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs[command] = err
	return s
}

// FailDials makes the next n dials fail with a ConnectionFault
func (s *Server) FailDials(n int) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failDials = n
	return s
}

// Dials returns how many connection attempts were made
func (s *Server) Dials() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dials
}

// Closed returns how many connections were closed
func (s *Server) Closed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Commands returns every command received, in order
func (s *Server) Commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.commands))
	copy(out, s.commands)
	return out
}

// Dialer routes addresses to scripted servers
type Dialer struct {
	mu      sync.Mutex
	servers map[string]*Server
}

// NewDialer creates a dialer with no servers; unknown addresses refuse
func NewDialer() *Dialer {
	return &Dialer{servers: make(map[string]*Server)}
}

// Handle registers srv for addr
func (d *Dialer) Handle(addr string, srv *Server) *Server {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.servers[addr] = srv
	return srv
}

// Dial implements conn.Dialer
func (d *Dialer) Dial(ctx context.Context, addr string) (conn.Conn, error) {
	d.mu.Lock()
	srv, ok := d.servers[addr]
	d.mu.Unlock()
	if !ok {
		return nil, &conn.ConnectionFault{Addr: addr, Op: "DIAL", Err: ErrRefused}
	}

	srv.mu.Lock()
	defer srv.mu.Unlock()
	srv.dials++
	if srv.failDials > 0 {
		srv.failDials--
		return nil, &conn.ConnectionFault{Addr: addr, Op: "DIAL", Err: ErrRefused}
	}
	return &fakeConn{addr: addr, srv: srv}, nil
}

type fakeConn struct {
	addr string
	srv  *Server
}

func key(args []interface{}) string {
	parts := make([]string, 0, len(args))
	for _, a := range args {
		parts = append(parts, strings.ToUpper(fmt.Sprint(a)))
	}
	return strings.Join(parts, " ")
}

func (c *fakeConn) Query(ctx context.Context, args ...interface{}) (string, error) {
	k := key(args)
	c.srv.mu.Lock()
	defer c.srv.mu.Unlock()
	c.srv.commands = append(c.srv.commands, k)
	if err, ok := c.srv.errs[k]; ok {
		return "", err
	}
	if v, ok := c.srv.text[k]; ok {
		return v, nil
	}
	return "", &conn.ReplyError{Addr: c.addr, Command: k, Message: "ERR unknown command"}
}

func (c *fakeConn) QuerySlice(ctx context.Context, args ...interface{}) ([]interface{}, error) {
	k := key(args)
	c.srv.mu.Lock()
	defer c.srv.mu.Unlock()
	c.srv.commands = append(c.srv.commands, k)
	if err, ok := c.srv.errs[k]; ok {
		return nil, err
	}
	if v, ok := c.srv.slices[k]; ok {
		return v, nil
	}
	return nil, &conn.ReplyError{Addr: c.addr, Command: k, Message: "ERR unknown command"}
}

func (c *fakeConn) Close() error {
	c.srv.mu.Lock()
	defer c.srv.mu.Unlock()
	c.srv.closed++
	return nil
}
