package daemon

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/skydreamer0/VOICEAPP/internal/customer"
	"github.com/skydreamer0/VOICEAPP/internal/logging"
	"github.com/skydreamer0/VOICEAPP/internal/session"
)

// subscriberBuffer is how many events may queue for a slow subscriber
// before further events are dropped.
const subscriberBuffer = 64

// CustomerLookup resolves the customer a recording is started for.
type CustomerLookup interface {
	Get(ctx context.Context, id string) (customer.Customer, error)
}

// Server exposes a session over a Unix socket.
type Server struct {
	sess      *session.Session
	customers CustomerLookup
	log       zerolog.Logger

	ln   net.Listener
	path string

	mu      sync.Mutex
	subs    map[*subscriber]struct{}
	closing bool

	// wg tracks connection handlers and limit-triggered stops.
	wg sync.WaitGroup
}

type subscriber struct {
	events []string
	ch     chan Event
}

func (s *subscriber) wants(name string) bool {
	return len(s.events) == 0 || slices.Contains(s.events, name)
}

// NewServer returns a Server driving sess.
func NewServer(sess *session.Session, customers CustomerLookup) *Server {
	s := &Server{
		sess:      sess,
		customers: customers,
		log:       logging.WithComponent("daemon"),
		subs:      make(map[*subscriber]struct{}),
	}
	sess.OnEvent(s.onSessionEvent)
	return s
}

// Listen binds the socket, replacing a stale socket file left by a
// previous run. It fails if another daemon is answering on path.
func (s *Server) Listen(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create socket dir: %w", err)
	}
	if conn, err := net.Dial("unix", path); err == nil {
		conn.Close()
		return fmt.Errorf("daemon already running on %s", path)
	}
	os.Remove(path)

	ln, err := net.Listen("unix", path)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	s.ln = ln
	s.path = path
	return nil
}

// Addr returns the socket path.
func (s *Server) Addr() string { return s.path }

// Serve accepts connections until ctx is cancelled. An active recording
// is stopped and saved before Serve returns.
func (s *Server) Serve(ctx context.Context) error {
	if s.ln == nil {
		return errors.New("serve: Listen not called")
	}

	go func() {
		<-ctx.Done()
		s.ln.Close()
	}()

	s.log.Info().Str("socket", s.path).Msg("daemon listening")
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			return fmt.Errorf("accept: %w", err)
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(ctx, conn)
		}()
	}

	s.mu.Lock()
	s.closing = true
	s.mu.Unlock()

	if s.sess.Status().State.Active() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		s.stop(stopCtx)
		cancel()
	}
	s.wg.Wait()
	os.Remove(s.path)
	s.log.Info().Msg("daemon stopped")
	return nil
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		conn.Close()
	}()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	enc := json.NewEncoder(conn)

	for scanner.Scan() {
		var cmd Command
		if err := json.Unmarshal(scanner.Bytes(), &cmd); err != nil {
			enc.Encode(Response{Error: fmt.Sprintf("invalid command: %v", err)})
			continue
		}

		if cmd.Cmd == CmdSubscribe {
			sub := s.subscribe(cmd.Events)
			defer s.unsubscribe(sub)
			if err := enc.Encode(Response{OK: true}); err != nil {
				return
			}
			s.stream(ctx, scanner, enc, sub)
			return
		}

		if err := enc.Encode(s.Dispatch(ctx, cmd)); err != nil {
			s.log.Debug().Err(err).Msg("write response")
			return
		}
	}
}

func (s *Server) subscribe(events []string) *subscriber {
	sub := &subscriber{events: events, ch: make(chan Event, subscriberBuffer)}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs[sub] = struct{}{}
	return sub
}

func (s *Server) unsubscribe(sub *subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, sub)
}

// stream forwards events to a subscribed connection until it hangs up or
// ctx ends. The current state is always sent first.
func (s *Server) stream(ctx context.Context, scanner *bufio.Scanner, enc *json.Encoder, sub *subscriber) {
	if err := enc.Encode(statusEvent(s.sess.Status())); err != nil {
		return
	}

	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for scanner.Scan() {
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-gone:
			return
		case ev := <-sub.ch:
			if err := enc.Encode(ev); err != nil {
				return
			}
		}
	}
}

func (s *Server) broadcast(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for sub := range s.subs {
		if !sub.wants(ev.Event) {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			s.log.Warn().Str("event", ev.Event).Msg("subscriber too slow, event dropped")
		}
	}
}

func (s *Server) onSessionEvent(ev session.Event) {
	switch ev.Kind {
	case session.EventTick:
		s.broadcast(Event{Event: EventTick, DurationMs: Int64Ptr(ev.Status.Duration.Milliseconds())})
	case session.EventState:
		s.broadcast(statusEvent(ev.Status))
	case session.EventLimit:
		s.mu.Lock()
		if s.closing {
			// Serve stops the active recording itself.
			s.mu.Unlock()
			return
		}
		s.wg.Add(1)
		s.mu.Unlock()
		go func() {
			defer s.wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			s.stop(ctx)
		}()
	}
}

// Dispatch executes one non-subscribe command.
func (s *Server) Dispatch(ctx context.Context, cmd Command) Response {
	switch cmd.Cmd {
	case CmdStatus:
		return statusResponse(s.sess.Status())

	case CmdStart:
		if cmd.CustomerID == "" {
			return s.fail(CmdStart, session.ErrNoCustomer, true)
		}
		c, err := s.customers.Get(ctx, cmd.CustomerID)
		if err != nil {
			return s.fail(CmdStart, err, true)
		}
		if err := s.sess.Start(ctx, &c); err != nil {
			return s.fail(CmdStart, err, true)
		}
		return statusResponse(s.sess.Status())

	case CmdPause:
		if err := s.sess.Pause(); err != nil {
			return s.fail(CmdPause, err, true)
		}
		return statusResponse(s.sess.Status())

	case CmdResume:
		if err := s.sess.Resume(); err != nil {
			return s.fail(CmdResume, err, true)
		}
		return statusResponse(s.sess.Status())

	case CmdStop:
		return s.stop(ctx)

	default:
		return Response{Error: fmt.Sprintf("unknown command %q", cmd.Cmd)}
	}
}

func (s *Server) stop(ctx context.Context) Response {
	rec, err := s.sess.Stop(ctx)
	if err != nil {
		transient := errors.Is(err, session.ErrNotActive)
		return s.fail(CmdStop, err, transient)
	}
	s.broadcast(Event{Event: EventSaved, RecordingID: rec.ID, CustomerID: rec.CustomerID, CustomerName: rec.CustomerName})

	resp := statusResponse(s.sess.Status())
	resp.RecordingID = rec.ID
	if !rec.IsWebRecording {
		resp.AudioURI = rec.AudioURI
	}
	resp.DurationMs = Int64Ptr(rec.Duration)
	return resp
}

// fail logs err, tells subscribers about it and builds the error reply.
func (s *Server) fail(cmd string, err error, transient bool) Response {
	s.log.Warn().Err(err).Str("cmd", cmd).Msg("command failed")
	s.broadcast(Event{Event: EventError, Message: err.Error(), Transient: BoolPtr(transient)})
	return Response{Error: err.Error()}
}

func statusResponse(st session.Status) Response {
	resp := Response{
		OK:         true,
		State:      st.State.String(),
		DurationMs: Int64Ptr(st.Duration.Milliseconds()),
		Recording:  BoolPtr(st.State.Active()),
		Paused:     BoolPtr(st.State == session.StatePaused),
	}
	if st.Customer != nil {
		resp.CustomerID = st.Customer.ID
		resp.CustomerName = st.Customer.Name
	}
	return resp
}

func statusEvent(st session.Status) Event {
	ev := Event{
		Event:      EventStatus,
		State:      st.State.String(),
		DurationMs: Int64Ptr(st.Duration.Milliseconds()),
		Recording:  BoolPtr(st.State.Active()),
		Paused:     BoolPtr(st.State == session.StatePaused),
	}
	if st.Customer != nil {
		ev.CustomerID = st.Customer.ID
		ev.CustomerName = st.Customer.Name
	}
	return ev
}
