package server

import (
	"context"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"strakmachine/model"
)

// Hub is one review session: a reader, a request handler and a writer
// connected by channels.
type Hub struct {
	id   string
	s    *Server
	conn *websocket.Conn
	// request
	msg chan model.Msg
	// response
	reply chan model.Msg
}

func NewHub(s *Server, conn *websocket.Conn) *Hub {
	return &Hub{
		id:    uuid.NewString(),
		s:     s,
		conn:  conn,
		msg:   make(chan model.Msg, 10),
		reply: make(chan model.Msg, 10),
	}
}

// run blocks until the peer goes away or ctx is done.
func (h *Hub) run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-ctx.Done()
		// unblocks ReadJSON
		h.conn.Close()
		return nil
	})
	g.Go(func() error { return h.readRequest(ctx) })
	g.Go(func() error { return h.handleRequest(ctx) })
	g.Go(func() error { return h.handleResponse(ctx) })
	return g.Wait()
}

// send queues a reply without blocking; a session that does not keep up
// loses notifications.
func (h *Hub) send(msg model.Msg) {
	select {
	case h.reply <- msg:
	default:
		log.WithFields(log.Fields{"session": h.id, "type": msg.Type}).Warn("reply queue full, message dropped")
	}
}

func (h *Hub) readRequest(ctx context.Context) error {
	for {
		var msg model.Msg
		if err := h.conn.ReadJSON(&msg); err != nil {
			return err
		}
		select {
		case h.msg <- msg:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (h *Hub) handleRequest(ctx context.Context) error {
	for {
		select {
		case msg := <-h.msg:
			reply := h.s.handle(ctx, h.id, msg)
			select {
			case h.reply <- reply:
			case <-ctx.Done():
				return ctx.Err()
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (h *Hub) handleResponse(ctx context.Context) error {
	for {
		select {
		case reply := <-h.reply:
			if err := h.conn.WriteJSON(&reply); err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
