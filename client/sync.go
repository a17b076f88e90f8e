package client

import (
	"sync"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"

	"kanban-api/domain"
	"kanban-api/export"
	"kanban-api/realtime"
)

// Subscriber joins board topics; satisfied by *realtime.Hub.
type Subscriber interface {
	Subscribe(boardID string) *realtime.Subscription
}

// Config wires a Synchronizer to one board view. The export callbacks are
// optional; nil callbacks are skipped.
type Config struct {
	BoardID           string
	Store             *BoardStore
	OnExportRequested func(export.Snapshot)
	OnExportCompleted func(export.Snapshot)
	OnExportFailed    func(export.Snapshot)
}

// Synchronizer subscribes a board view to its topic, applies incoming
// events to the store, and leaves the topic on Close. Events for any other
// board are ignored even if they arrive: topic scoping enforces this at
// the bus, the synchronizer tolerates strays.
type Synchronizer struct {
	cfg  Config
	sub  *realtime.Subscription
	done chan struct{}

	mu         sync.Mutex
	lastExport *export.Snapshot
}

// Attach resets the store onto boardID, joins the topic and starts the
// apply loop.
func Attach(bus Subscriber, cfg Config) *Synchronizer {
	cfg.Store.Reset()
	cfg.Store.SetBoardID(cfg.BoardID)
	s := &Synchronizer{
		cfg:  cfg,
		sub:  bus.Subscribe(cfg.BoardID),
		done: make(chan struct{}),
	}
	go s.run()
	return s
}

// Close leaves the topic, stops the apply loop and clears the store.
func (s *Synchronizer) Close() {
	s.sub.Close()
	<-s.done
	s.cfg.Store.Reset()
}

// LastExport returns the most recent export snapshot seen on the topic.
func (s *Synchronizer) LastExport() *export.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastExport == nil {
		return nil
	}
	cp := *s.lastExport
	return &cp
}

func (s *Synchronizer) run() {
	defer close(s.done)
	for ev := range s.sub.Events() {
		s.apply(ev)
	}
}

func (s *Synchronizer) apply(ev domain.Event) {
	if ev.BoardID != s.cfg.Store.BoardID() {
		return
	}
	switch ev.Type {
	case domain.ColumnCreated, domain.ColumnUpdated:
		var c domain.Column
		if err := sonic.Unmarshal(ev.Data, &c); err != nil {
			log.Errorf("parse %s: %v", ev.Type, err)
			return
		}
		s.cfg.Store.UpsertColumn(c)
	case domain.ColumnDeleted:
		var d domain.ColumnDeletedData
		if err := sonic.Unmarshal(ev.Data, &d); err != nil {
			log.Errorf("parse %s: %v", ev.Type, err)
			return
		}
		s.cfg.Store.RemoveColumn(d.ID)
	case domain.TaskCreated, domain.TaskUpdated, domain.TaskMoved:
		var t domain.Task
		if err := sonic.Unmarshal(ev.Data, &t); err != nil {
			log.Errorf("parse %s: %v", ev.Type, err)
			return
		}
		s.cfg.Store.UpsertTask(t)
	case domain.TaskDeleted:
		var d domain.TaskDeletedData
		if err := sonic.Unmarshal(ev.Data, &d); err != nil {
			log.Errorf("parse %s: %v", ev.Type, err)
			return
		}
		s.cfg.Store.RemoveTask(d.ID, d.ColumnID)
	case domain.BoardDeleted:
		s.cfg.Store.Reset()
	case domain.ExportRequested, domain.ExportCompleted, domain.ExportFailed:
		var snap export.Snapshot
		if err := sonic.Unmarshal(ev.Data, &snap); err != nil {
			log.Errorf("parse %s: %v", ev.Type, err)
			return
		}
		s.mu.Lock()
		s.lastExport = &snap
		s.mu.Unlock()
		switch ev.Type {
		case domain.ExportRequested:
			if s.cfg.OnExportRequested != nil {
				s.cfg.OnExportRequested(snap)
			}
		case domain.ExportCompleted:
			if s.cfg.OnExportCompleted != nil {
				s.cfg.OnExportCompleted(snap)
			}
		default:
			if s.cfg.OnExportFailed != nil {
				s.cfg.OnExportFailed(snap)
			}
		}
	case domain.BoardCreated, domain.BoardUpdated:
		// Board metadata is not mirrored in the store.
	}
}
