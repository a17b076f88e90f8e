package export

import (
	"context"
	"crypto/subtle"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"kanban-api/domain"
)

// BoardFinder resolves the board an export belongs to.
type BoardFinder interface {
	GetBoard(ctx context.Context, id string) (domain.Board, error)
}

// Publisher delivers export events to board subscribers.
type Publisher interface {
	Publish(ev domain.Event)
}

// Config holds the orchestrator's webhook and callback settings. An empty
// WebhookURL makes every request fail with a terminal error record; an
// empty StatusToken disables callback authentication (local/dev only).
type Config struct {
	WebhookURL   string
	WebhookToken string
	CallbackURL  string
	StatusToken  string
}

// Service orchestrates export requests.
type Service struct {
	boards  BoardFinder
	bus     Publisher
	webhook *WebhookClient
	cfg     Config
	now     func() time.Time

	mu       sync.Mutex
	requests map[string]*request
}

func NewService(boards BoardFinder, bus Publisher, webhook *WebhookClient, cfg Config) *Service {
	return &Service{
		boards:   boards,
		bus:      bus,
		webhook:  webhook,
		cfg:      cfg,
		now:      time.Now,
		requests: make(map[string]*request),
	}
}

// RequestInput is the client's export request. Email and To are aliases;
// either satisfies the recipient requirement.
type RequestInput struct {
	BoardID string   `json:"boardId"`
	Email   string   `json:"email,omitempty"`
	To      string   `json:"to,omitempty"`
	Fields  []string `json:"fields,omitempty"`
}

// Request registers a pending export and delegates it to the external
// worker. Delegation failure marks the request as a terminal error and
// returns ErrDelegation; the record stays queryable either way.
func (s *Service) Request(ctx context.Context, in RequestInput) (Snapshot, error) {
	recipient := in.Email
	if recipient == "" {
		recipient = in.To
	}
	if recipient == "" {
		log.WithField("board", in.BoardID).Warn("export request without recipient")
		return Snapshot{}, fmt.Errorf("%w: export recipient required", domain.ErrValidation)
	}
	if err := validFields(in.Fields); err != nil {
		return Snapshot{}, err
	}

	board, err := s.boards.GetBoard(ctx, in.BoardID)
	if err != nil {
		return Snapshot{}, err
	}

	fields := in.Fields
	if len(fields) == 0 {
		fields = append([]string(nil), ExportableFields...)
	}

	req := &request{
		requestID:   uuid.NewString(),
		boardID:     in.BoardID,
		to:          recipient,
		fields:      fields,
		status:      StatusPending,
		requestedAt: s.now().UTC(),
	}
	s.mu.Lock()
	s.requests[req.requestID] = req
	s.mu.Unlock()

	if s.cfg.WebhookURL == "" {
		msg := "export webhook URL is not configured"
		log.Error(msg)
		s.markAs(req, StatusError, msg)
		return Snapshot{}, fmt.Errorf("%w: %s", domain.ErrDelegation, msg)
	}

	payload := WebhookPayload{
		RequestID:   req.requestID,
		Board:       BoardRef{ID: board.ID, Name: board.Name, Owner: board.Owner},
		BoardID:     in.BoardID,
		Email:       recipient,
		To:          recipient,
		Fields:      fields,
		CallbackURL: s.cfg.CallbackURL,
		RequestedAt: req.requestedAt.Format(time.RFC3339),
	}
	if err := s.webhook.Trigger(ctx, s.cfg.WebhookURL, s.cfg.WebhookToken, payload); err != nil {
		log.WithField("request", req.requestID).Errorf("export delegation failed: %v", err)
		s.markAs(req, StatusError, "could not reach the export webhook, check the worker configuration")
		return Snapshot{}, fmt.Errorf("%w: %v", domain.ErrDelegation, err)
	}

	// Re-assert pending so subscribers learn the export left the building.
	s.markAs(req, StatusPending, "")
	return s.snapshotOf(req), nil
}

// ValidateToken checks the shared callback secret. With no secret
// configured every token is accepted.
func (s *Service) ValidateToken(token string) error {
	if s.cfg.StatusToken == "" {
		return nil
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.StatusToken)) != 1 {
		return fmt.Errorf("%w: invalid export token", domain.ErrUnauthorized)
	}
	return nil
}

// StatusReport is the inbound completion callback body.
type StatusReport struct {
	RequestID string   `json:"requestId"`
	BoardID   string   `json:"boardId"`
	Status    string   `json:"status"`
	Email     string   `json:"email,omitempty"`
	To        string   `json:"to,omitempty"`
	Fields    []string `json:"fields,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// HandleStatus applies a completion callback. Unknown request ids are
// synthesized into fresh records: the callback is trusted as the source of
// truth in that case. Repeated callbacks re-assert the terminal state, so
// duplicate delivery is harmless.
func (s *Service) HandleStatus(in StatusReport) (Snapshot, error) {
	if in.RequestID == "" {
		return Snapshot{}, fmt.Errorf("%w: requestId required", domain.ErrValidation)
	}
	status, err := NormalizeStatus(in.Status)
	if err != nil {
		return Snapshot{}, err
	}
	if err := validFields(in.Fields); err != nil {
		return Snapshot{}, err
	}

	s.mu.Lock()
	req, ok := s.requests[in.RequestID]
	if !ok {
		fields := in.Fields
		if len(fields) == 0 {
			fields = append([]string(nil), ExportableFields...)
		}
		req = &request{
			requestID:   in.RequestID,
			boardID:     in.BoardID,
			fields:      fields,
			status:      StatusPending,
			requestedAt: s.now().UTC(),
		}
		s.requests[req.requestID] = req
	}
	if recipient := firstNonEmpty(in.Email, in.To); recipient != "" {
		req.to = recipient
	}
	if len(in.Fields) > 0 {
		req.fields = append([]string(nil), in.Fields...)
	}
	s.mu.Unlock()

	if status == StatusSuccess {
		s.markAs(req, StatusSuccess, "")
	} else {
		msg := in.Error
		if msg == "" {
			msg = "the backlog export failed"
		}
		s.markAs(req, StatusError, msg)
	}
	return s.snapshotOf(req), nil
}

// Status returns the serialized request or ErrNotFound.
func (s *Service) Status(ctx context.Context, requestID string) (Snapshot, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[requestID]
	if !ok {
		return Snapshot{}, domain.ErrNotFound
	}
	return req.snapshot(), nil
}

// markAs transitions the record and publishes the matching event.
func (s *Service) markAs(req *request, status Status, errMsg string) {
	s.mu.Lock()
	req.status = status
	req.errMsg = errMsg
	if status == StatusPending {
		req.completedAt = nil
	} else {
		done := s.now().UTC()
		req.completedAt = &done
	}
	snap := req.snapshot()
	s.mu.Unlock()

	eventType := domain.ExportRequested
	switch status {
	case StatusSuccess:
		eventType = domain.ExportCompleted
	case StatusError:
		eventType = domain.ExportFailed
	}
	ev, err := domain.NewEvent(eventType, snap.BoardID, snap)
	if err != nil {
		return
	}
	s.bus.Publish(ev)
}

func (s *Service) snapshotOf(req *request) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return req.snapshot()
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
