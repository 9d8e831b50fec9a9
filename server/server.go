package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/brunoga/deep"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"strakmachine/deque"
	"strakmachine/model"
	"strakmachine/pipeline"
	"strakmachine/strak"
	"strakmachine/strakerr"
)

// HistorySize is the number of undo steps kept per airfoil.
const HistorySize = 32

// snapshot is the op-point state of an airfoil before a change.
type snapshot struct {
	ops    []model.OpPoint
	edited bool
}

// Server serves the review GUI. The pipeline is single threaded, every
// request holds mu while it runs.
type Server struct {
	addr     string
	upgrader websocket.Upgrader

	mu      sync.Mutex
	pl      *pipeline.Pipeline
	history map[string]*deque.ListDeque[snapshot]

	hubsMu sync.Mutex
	hubs   map[*Hub]struct{}
}

func NewServer(addr string, upgrader websocket.Upgrader, pl *pipeline.Pipeline) *Server {
	return &Server{
		addr:     addr,
		upgrader: upgrader,
		pl:       pl,
		history:  map[string]*deque.ListDeque[snapshot]{},
		hubs:     map[*Hub]struct{}{},
	}
}

// serveWs handles websocket requests from the peer.
func (s *Server) serveWs(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithFields(log.Fields{"err": err}).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	hub := NewHub(s, conn)
	s.register(hub)
	defer s.unregister(hub)

	log.WithFields(log.Fields{"session": hub.id, "remote": r.RemoteAddr}).Info("review session opened")
	err = hub.run(r.Context())
	log.WithFields(log.Fields{"session": hub.id, "err": err}).Info("review session closed")
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.serveWs)
	return mux
}

// Serve listens until ctx is done.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.Handler()}
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdown)
	}()
	log.WithFields(log.Fields{"addr": s.addr}).Info("review server listening")
	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) register(h *Hub) {
	s.hubsMu.Lock()
	defer s.hubsMu.Unlock()
	s.hubs[h] = struct{}{}
}

func (s *Server) unregister(h *Hub) {
	s.hubsMu.Lock()
	defer s.hubsMu.Unlock()
	delete(s.hubs, h)
}

// broadcast queues msg on every open session.
func (s *Server) broadcast(msg model.Msg) {
	s.hubsMu.Lock()
	defer s.hubsMu.Unlock()
	for h := range s.hubs {
		h.send(msg)
	}
}

// handle runs one request and returns the reply.
func (s *Server) handle(ctx context.Context, session string, msg model.Msg) model.Msg {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.dispatch(ctx, msg)
	if err != nil {
		log.WithFields(log.Fields{"session": session, "type": msg.Type, "airfoil": msg.Airfoil, "err": err}).Warn("request failed")
		return errorMsg(msg.Airfoil, err)
	}
	text, err := s.pl.TargetPolarText(ctx, r)
	if err != nil {
		return errorMsg(msg.Airfoil, err)
	}
	content, err := json.Marshal(model.OpPointsContent{
		Session:     session,
		Airfoil:     r.Airfoil.Name,
		Re:          r.Airfoil.Re,
		OpPoints:    r.OpPoints,
		TargetPolar: text,
		Edited:      r.Edited,
		Warnings:    r.Warnings,
	})
	if err != nil {
		return errorMsg(msg.Airfoil, err)
	}
	return model.Msg{Type: model.MsgOpPoints, Airfoil: r.Airfoil.Name, Content: content}
}

func (s *Server) dispatch(ctx context.Context, msg model.Msg) (*pipeline.Result, error) {
	i, err := s.pl.Index(msg.Airfoil)
	if err != nil {
		return nil, err
	}
	switch msg.Type {
	case model.MsgLoad:
		return s.pl.Load(ctx, i)

	case model.MsgEdit:
		var e model.EditContent
		if err := json.Unmarshal(msg.Content, &e); err != nil {
			return nil, strakerr.Wrap(strakerr.InvalidInputFile, nil, err, "edit request")
		}
		if err := s.remember(ctx, i); err != nil {
			return nil, err
		}
		return s.pl.Edit(ctx, i, strak.Edit{Index: e.Index, Value: e.Value, Target: e.Target, Weighting: e.Weighting})

	case model.MsgReset:
		if err := s.remember(ctx, i); err != nil {
			return nil, err
		}
		return s.pl.Reset(ctx, i)

	case model.MsgUndo:
		h, ok := s.history[msg.Airfoil]
		if !ok || h.IsEmpty() {
			return nil, strakerr.New(strakerr.InvalidInputFile, msg.Airfoil, "nothing to undo")
		}
		snap, _ := h.RemoveLast()
		log.WithFields(log.Fields{"airfoil": msg.Airfoil, "left": h.Size()}).Debug("undo")
		if !snap.edited {
			return s.pl.Reset(ctx, i)
		}
		return s.pl.Store(ctx, i, snap.ops)

	default:
		return nil, strakerr.New(strakerr.InvalidInputFile, msg.Type, "unknown request type")
	}
}

// remember pushes the current op-points of airfoil i onto its history.
func (s *Server) remember(ctx context.Context, i int) error {
	r, err := s.pl.Load(ctx, i)
	if err != nil {
		return err
	}
	ops, err := deep.Copy(r.OpPoints)
	if err != nil {
		return err
	}
	name := r.Airfoil.Name
	h, ok := s.history[name]
	if !ok {
		h = deque.NewListDeque[snapshot](HistorySize)
		s.history[name] = h
	}
	_, edited := s.pl.Params().Override(name)
	h.Push(snapshot{ops: ops, edited: edited})
	return nil
}

func errorMsg(airfoil string, err error) model.Msg {
	content, _ := json.Marshal(err.Error())
	return model.Msg{Type: model.MsgError, Airfoil: airfoil, Content: content}
}
