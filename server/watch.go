package server

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"

	"strakmachine/deque"
	"strakmachine/model"
	"strakmachine/params"
	"strakmachine/pipeline"
)

// Watch regenerates all targets whenever the parameter file changes on
// disk and notifies every session. It blocks until ctx is done.
func (s *Server) Watch(ctx context.Context, paramsFile string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// the directory, saves replace the file
	if err := watcher.Add(filepath.Dir(paramsFile)); err != nil {
		return err
	}
	target := filepath.Clean(paramsFile)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target || !event.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			if _, err := s.Reload(ctx, paramsFile); err != nil {
				log.WithFields(log.Fields{"file": paramsFile, "err": err}).Warn("parameter reload failed")
				s.broadcast(errorMsg("", err))
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.WithFields(log.Fields{"err": err}).Warn("parameter watcher error")
		case <-ctx.Done():
			return nil
		}
	}
}

// Reload loads the parameter file and, if it differs from the parameters
// in use, regenerates every airfoil and pushes a params notification.
// Saves of our own edits are recognized and skipped.
func (s *Server) Reload(ctx context.Context, paramsFile string) (bool, error) {
	p, err := params.LoadFile(paramsFile)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var cur, next bytes.Buffer
	if err := s.pl.Params().Encode(&cur); err != nil {
		return false, err
	}
	if err := p.Encode(&next); err != nil {
		return false, err
	}
	if bytes.Equal(cur.Bytes(), next.Bytes()) {
		return false, nil
	}

	if err := s.pl.Reload(p); err != nil {
		return false, err
	}
	if err := s.pl.Run(ctx, pipeline.StageTargets); err != nil {
		return false, err
	}
	s.history = map[string]*deque.ListDeque[snapshot]{}

	names := make([]string, 0, p.NumAirfoils())
	for _, a := range s.pl.Airfoils() {
		names = append(names, a.Name)
	}
	content, err := json.Marshal(names)
	if err != nil {
		return false, err
	}
	log.WithFields(log.Fields{"file": paramsFile, "airfoils": len(names)}).Info("parameters changed, targets regenerated")
	s.broadcast(model.Msg{Type: model.MsgParams, Content: content})
	return true, nil
}
