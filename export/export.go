// Package export manages the lifecycle of asynchronous backlog-export
// jobs: request, delegation to an external worker over a webhook, the
// out-of-band status callback, and status queries. Requests live in a
// process-local registry; terminal states are final.
package export

import (
	"fmt"
	"strings"
	"time"

	"kanban-api/domain"
)

// Status is the lifecycle state of an export request.
type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// ExportableFields is the full set of fields an export may include; the
// default when a request names none.
var ExportableFields = []string{"id", "title", "description", "column", "createdAt"}

// NormalizeStatus maps recognized status synonyms onto a terminal Status,
// case-insensitively.
func NormalizeStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "success", "completed", "ok", "done":
		return StatusSuccess, nil
	case "error", "failed", "failure":
		return StatusError, nil
	default:
		return "", fmt.Errorf("%w: unrecognized export status %q", domain.ErrValidation, s)
	}
}

func validFields(fields []string) error {
	for _, f := range fields {
		known := false
		for _, k := range ExportableFields {
			if f == k {
				known = true
				break
			}
		}
		if !known {
			return fmt.Errorf("%w: unknown export field %q", domain.ErrValidation, f)
		}
	}
	return nil
}

type request struct {
	requestID   string
	boardID     string
	to          string
	fields      []string
	status      Status
	requestedAt time.Time
	completedAt *time.Time
	errMsg      string
}

// Snapshot is the serialized shape of an export request, returned to
// callers and carried by export events.
type Snapshot struct {
	RequestID   string   `json:"requestId"`
	BoardID     string   `json:"boardId"`
	To          string   `json:"to"`
	Fields      []string `json:"fields"`
	Status      Status   `json:"status"`
	RequestedAt string   `json:"requestedAt"`
	CompletedAt *string  `json:"completedAt"`
	Error       *string  `json:"error"`
}

func (r *request) snapshot() Snapshot {
	s := Snapshot{
		RequestID:   r.requestID,
		BoardID:     r.boardID,
		To:          r.to,
		Fields:      append([]string(nil), r.fields...),
		Status:      r.status,
		RequestedAt: r.requestedAt.UTC().Format(time.RFC3339),
	}
	if r.completedAt != nil {
		ts := r.completedAt.UTC().Format(time.RFC3339)
		s.CompletedAt = &ts
	}
	if r.errMsg != "" {
		msg := r.errMsg
		s.Error = &msg
	}
	return s
}
