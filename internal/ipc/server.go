package ipc

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/austinkregel/local-media/ampd/internal/queue"
	"github.com/austinkregel/local-media/ampd/internal/transport"
)

// Player is the part of the transport controller the server exposes
type Player interface {
	OpenFolder(ctx context.Context, dir string) error
	OpenFile(ctx context.Context, path string) error
	DoubleClickFile(ctx context.Context, path string) error

	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	PlayPause(ctx context.Context) error
	Stop(ctx context.Context) error
	Next(ctx context.Context) error
	Previous(ctx context.Context) error
	Seek(ctx context.Context, positionMs int64) error
	SetVolume(ctx context.Context, level int) error

	ToggleShuffle(ctx context.Context) error
	SetShuffle(ctx context.Context, enabled bool) error
	CycleLoopMode(ctx context.Context) error
	SetLoopMode(ctx context.Context, m queue.LoopMode) error

	Status(ctx context.Context) (transport.Status, error)
	Queue(ctx context.Context) ([]transport.TrackInfo, error)
	Subscribe() *transport.Subscription
}

// client is one connection. Responses and pushes share the socket, so
// writes are serialized.
type client struct {
	id   string
	conn net.Conn

	writeMu sync.Mutex

	subMu sync.Mutex
	sub   *transport.Subscription
}

func (c *client) send(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_, err := c.conn.Write(append(data, '\n'))
	return err
}

func (c *client) unsubscribe() bool {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	if c.sub == nil {
		return false
	}
	c.sub.Close()
	c.sub = nil
	return true
}

// Server handles IPC communication with clients
type Server struct {
	socketPath string
	player     Player
	listener   net.Listener
	mu         sync.Mutex
	clients    map[net.Conn]*client
}

// NewServer creates a new IPC server
func NewServer(socketPath string, player Player) *Server {
	return &Server{
		socketPath: socketPath,
		player:     player,
		clients:    make(map[net.Conn]*client),
	}
}

// Start listens on the socket and serves until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	// Remove existing socket file if it exists
	if err := os.RemoveAll(s.socketPath); err != nil {
		return fmt.Errorf("failed to remove existing socket: %w", err)
	}

	log.Printf("[IPC] Creating socket at %s", s.socketPath)

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to listen on socket: %w", err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	// Set socket permissions (user-only)
	if err := os.Chmod(s.socketPath, 0600); err != nil {
		listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	log.Printf("[IPC] Server listening, waiting for connections...")

	go s.acceptLoop(ctx, listener)

	<-ctx.Done()

	log.Printf("[IPC] Shutting down server...")

	s.mu.Lock()
	clientCount := len(s.clients)
	for conn := range s.clients {
		conn.Close()
	}
	s.mu.Unlock()

	log.Printf("[IPC] Closed %d client connections", clientCount)

	listener.Close()
	os.RemoveAll(s.socketPath)

	log.Printf("[IPC] Server stopped")

	return nil
}

func (s *Server) acceptLoop(ctx context.Context, listener net.Listener) {
	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
				log.Printf("[IPC] Accept error: %v", err)
				time.Sleep(50 * time.Millisecond)
				continue
			}
		}

		c := &client{id: uuid.NewString()[:8], conn: conn}

		s.mu.Lock()
		s.clients[conn] = c
		clientCount := len(s.clients)
		s.mu.Unlock()

		log.Printf("[IPC] Client %s connected (active: %d)", c.id, clientCount)

		go s.handleConnection(ctx, c)
	}
}

func (s *Server) handleConnection(ctx context.Context, c *client) {
	defer func() {
		c.unsubscribe()
		c.conn.Close()
		s.mu.Lock()
		delete(s.clients, c.conn)
		clientCount := len(s.clients)
		s.mu.Unlock()
		log.Printf("[IPC] Client %s disconnected (active: %d)", c.id, clientCount)
	}()

	reader := bufio.NewReader(c.conn)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		// Read line (newline-delimited JSON)
		line, err := reader.ReadBytes('\n')
		if err != nil {
			if err != io.EOF {
				log.Printf("[IPC] Read error from %s: %v", c.id, err)
			}
			return
		}

		req, err := DecodeRequest(line)
		if err != nil {
			log.Printf("[IPC] Invalid request format from %s: %v", c.id, err)
			if err := s.sendResponse(c, NewErrorResponse("invalid request format")); err != nil {
				return
			}
			continue
		}

		logRequest(c.id, req)
		start := time.Now()
		resp := s.handleRequest(ctx, c, req)
		logResponse(c.id, req, resp, time.Since(start))

		if err := s.sendResponse(c, resp); err != nil {
			log.Printf("[IPC] Send error to %s: %v", c.id, err)
			return
		}
	}
}

func (s *Server) handleRequest(ctx context.Context, c *client, req *Request) *Response {
	switch req.Cmd {
	case CmdOpenFolder:
		return s.handlePath(ctx, req, s.player.OpenFolder)
	case CmdOpenFile:
		return s.handlePath(ctx, req, s.player.OpenFile)
	case CmdDoubleClickFile:
		return s.handlePath(ctx, req, s.player.DoubleClickFile)

	case CmdPlay:
		return result(s.player.Play(ctx))
	case CmdPause:
		return result(s.player.Pause(ctx))
	case CmdStop:
		return result(s.player.Stop(ctx))
	case CmdPlayPause:
		return result(s.player.PlayPause(ctx))
	case CmdNext:
		return result(s.player.Next(ctx))
	case CmdPrev:
		return result(s.player.Previous(ctx))
	case CmdSeek:
		return s.handleSeek(ctx, req)
	case CmdVolume:
		return s.handleVolume(ctx, req)

	case CmdToggleShuffle:
		return result(s.player.ToggleShuffle(ctx))
	case CmdSetShuffle:
		return s.handleSetShuffle(ctx, req)
	case CmdCycleLoop:
		return result(s.player.CycleLoopMode(ctx))
	case CmdSetLoop:
		return s.handleSetLoop(ctx, req)

	case CmdStatus:
		return s.handleStatus(ctx)
	case CmdGetQueue:
		return s.handleGetQueue(ctx)

	case CmdSubscribe:
		return s.handleSubscribe(c)
	case CmdUnsubscribe:
		return s.handleUnsubscribe(c)
	default:
		return NewErrorResponse("unknown command")
	}
}

// result maps a command error onto a response
func result(err error) *Response {
	if err != nil {
		return NewErrorResponse(err.Error())
	}
	resp, _ := NewSuccessResponse(nil)
	return resp
}

func (s *Server) handlePath(ctx context.Context, req *Request, fn func(context.Context, string) error) *Response {
	pathReq, err := decodeData[PathRequest](req)
	if err != nil {
		return NewErrorResponse(err.Error())
	}
	if pathReq.Path == "" {
		return NewErrorResponse("path is required")
	}
	return result(fn(ctx, pathReq.Path))
}

func (s *Server) handleSeek(ctx context.Context, req *Request) *Response {
	seekReq, err := decodeData[SeekRequest](req)
	if err != nil {
		return NewErrorResponse(err.Error())
	}
	if seekReq.Position < 0 {
		return NewErrorResponse("position must not be negative")
	}
	return result(s.player.Seek(ctx, seekReq.Position))
}

func (s *Server) handleVolume(ctx context.Context, req *Request) *Response {
	volReq, err := decodeData[VolumeRequest](req)
	if err != nil {
		return NewErrorResponse(err.Error())
	}
	if volReq.Level < 0 || volReq.Level > 100 {
		return NewErrorResponse("level must be between 0 and 100")
	}
	return result(s.player.SetVolume(ctx, volReq.Level))
}

func (s *Server) handleSetShuffle(ctx context.Context, req *Request) *Response {
	shuffleReq, err := decodeData[SetShuffleRequest](req)
	if err != nil {
		return NewErrorResponse(err.Error())
	}
	return result(s.player.SetShuffle(ctx, shuffleReq.Enabled))
}

func (s *Server) handleSetLoop(ctx context.Context, req *Request) *Response {
	loopReq, err := decodeData[SetLoopRequest](req)
	if err != nil {
		return NewErrorResponse(err.Error())
	}
	mode, err := queue.ParseLoopMode(loopReq.Mode)
	if err != nil {
		return NewErrorResponse(err.Error())
	}
	return result(s.player.SetLoopMode(ctx, mode))
}

func (s *Server) handleStatus(ctx context.Context) *Response {
	st, err := s.player.Status(ctx)
	if err != nil {
		return NewErrorResponse(err.Error())
	}
	resp, err := NewSuccessResponse(StatusResponse{Status: st, Line: st.Line()})
	if err != nil {
		return NewErrorResponse("internal error")
	}
	return resp
}

func (s *Server) handleGetQueue(ctx context.Context) *Response {
	st, err := s.player.Status(ctx)
	if err != nil {
		return NewErrorResponse(err.Error())
	}
	items, err := s.player.Queue(ctx)
	if err != nil {
		return NewErrorResponse(err.Error())
	}
	if items == nil {
		items = []transport.TrackInfo{}
	}

	resp, err := NewSuccessResponse(GetQueueResponse{
		Items:   items,
		Index:   st.Index,
		Loop:    st.Loop,
		Shuffle: st.Shuffle,
	})
	if err != nil {
		return NewErrorResponse("internal error")
	}
	return resp
}

// handleSubscribe starts pushing events to the client. Events published
// before the response is written may reach the client first.
func (s *Server) handleSubscribe(c *client) *Response {
	c.subMu.Lock()
	if c.sub != nil {
		id := c.sub.ID.String()
		c.subMu.Unlock()
		resp, _ := NewSuccessResponse(SubscribeResponse{ID: id})
		return resp
	}
	sub := s.player.Subscribe()
	c.sub = sub
	c.subMu.Unlock()

	go s.pushEvents(c, sub)

	log.Printf("[IPC] Client %s subscribed to events", c.id)
	resp, _ := NewSuccessResponse(SubscribeResponse{ID: sub.ID.String()})
	return resp
}

func (s *Server) handleUnsubscribe(c *client) *Response {
	if c.unsubscribe() {
		log.Printf("[IPC] Client %s unsubscribed from events", c.id)
	}
	resp, _ := NewSuccessResponse(nil)
	return resp
}

// pushEvents forwards events until the subscription closes
func (s *Server) pushEvents(c *client, sub *transport.Subscription) {
	for ev := range sub.C {
		msg, err := NewEventMessage(ev)
		if err != nil {
			log.Printf("[IPC] Failed to encode %s: %v", ev.Kind(), err)
			continue
		}
		if err := c.send(msg); err != nil {
			c.unsubscribe()
			return
		}
	}
}

func (s *Server) sendResponse(c *client, resp *Response) error {
	data, err := EncodeResponse(resp)
	if err != nil {
		return err
	}
	return c.send(data)
}
