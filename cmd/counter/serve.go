package main

import (
	"bufio"
	"context"
	"errors"
	"log"
	"net"
	"sync"
	"time"

	"github.com/tevino/abool/v2"
	"github.com/valyala/fasthttp"
)

// serve runs the line and HTTP servers on any addresses that are not empty
// until ctx is done or a server fails.
func serve(ctx context.Context, ev *evaluator, lineAddr, httpAddr string) error {
	errs := make(chan error, 2)
	var ls *lineServer
	if lineAddr != "" {
		var err error
		ls, err = listenLines(lineAddr, ev)
		if err != nil {
			return err
		}
		log.Printf("Starting line server on %q", ls.ln.Addr())
		go func() { errs <- ls.Serve() }()
	}
	var hs *fasthttp.Server
	if httpAddr != "" {
		hs = newHTTPServer(ev)
		log.Printf("Starting HTTP server on %q", httpAddr)
		go func() { errs <- hs.ListenAndServe(httpAddr) }()
	}

	var err error
	select {
	case <-ctx.Done():
	case err = <-errs:
	}
	log.Printf("Shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if ls != nil {
		ls.Close()
	}
	if hs != nil {
		if serr := hs.ShutdownWithContext(sctx); serr != nil && err == nil {
			err = serr
		}
	}
	return err
}

// lineServer answers one expression per line over TCP connections.
type lineServer struct {
	ev      *evaluator
	ln      net.Listener
	closing *abool.AtomicBool

	wg    sync.WaitGroup
	mu    sync.Mutex
	conns map[net.Conn]struct{}
}

func listenLines(addr string, ev *evaluator) (*lineServer, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return newLineServer(ln, ev), nil
}

func newLineServer(ln net.Listener, ev *evaluator) *lineServer {
	return &lineServer{
		ev:      ev,
		ln:      ln,
		closing: abool.NewBool(false),
		conns:   make(map[net.Conn]struct{}),
	}
}

// Serve accepts connections until the server is closed. It returns nil after
// Close.
func (s *lineServer) Serve() error {
	for {
		c, err := s.ln.Accept()
		if err != nil {
			if s.closing.IsSet() {
				return nil
			}
			return err
		}
		if !s.track(c) {
			c.Close()
			return nil
		}
		go func() {
			defer s.wg.Done()
			defer s.untrack(c)
			s.serveConn(c)
		}()
	}
}

// Close stops accepting connections, closes open ones, and waits for their
// handlers to finish.
func (s *lineServer) Close() error {
	s.closing.Set()
	err := s.ln.Close()
	s.mu.Lock()
	for c := range s.conns {
		c.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
	if errors.Is(err, net.ErrClosed) {
		err = nil
	}
	return err
}

// track records an open connection and adds it to the wait group. It reports
// false if the server is closing.
func (s *lineServer) track(c net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing.IsSet() {
		return false
	}
	s.conns[c] = struct{}{}
	s.wg.Add(1)
	return true
}

func (s *lineServer) untrack(c net.Conn) {
	s.mu.Lock()
	delete(s.conns, c)
	s.mu.Unlock()
	c.Close()
}

// serveConn replies to each line read from c with one line.
func (s *lineServer) serveConn(c net.Conn) {
	sc := bufio.NewScanner(c)
	w := bufio.NewWriter(c)
	for sc.Scan() {
		if s.closing.IsSet() {
			return
		}
		w.WriteString(s.ev.reply(sc.Text()))
		w.WriteByte('\n')
		if err := w.Flush(); err != nil {
			return
		}
	}
}
