package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type ExportKind string

const (
	ExportAggregate  ExportKind = "aggregate"
	ExportComparison ExportKind = "comparison"
	ExportQuote      ExportKind = "quote"
)

var ErrInvalidMessage = errors.New("invalid export request")

// ExportRequestMessage asks the worker to render a report workbook. It only
// carries the query; the worker reloads the data itself.
type ExportRequestMessage struct {
	ID         string            `json:"id"`
	Kind       ExportKind        `json:"kind"`
	Start      string            `json:"start,omitempty"`
	End        string            `json:"end,omitempty"`
	Filter     string            `json:"filter,omitempty"`
	FamilyID   int64             `json:"family_id,omitempty"`
	Quantities map[string]string `json:"quantities,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
}

func NewExportRequestMessage(kind ExportKind) *ExportRequestMessage {
	return &ExportRequestMessage{
		ID:        uuid.NewString(),
		Kind:      kind,
		Timestamp: time.Now().UTC(),
	}
}

// Validate checks that the message names a known kind and carries the
// parameters that kind needs.
func (m *ExportRequestMessage) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidMessage)
	}
	switch m.Kind {
	case ExportAggregate:
		if m.Start == "" || m.End == "" {
			return fmt.Errorf("%w: aggregate export needs start and end", ErrInvalidMessage)
		}
	case ExportComparison:
		if m.FamilyID <= 0 {
			return fmt.Errorf("%w: comparison export needs a family id", ErrInvalidMessage)
		}
	case ExportQuote:
		if m.FamilyID <= 0 {
			return fmt.Errorf("%w: quote export needs a family id", ErrInvalidMessage)
		}
		if len(m.Quantities) == 0 {
			return fmt.Errorf("%w: quote export needs quantities", ErrInvalidMessage)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidMessage, m.Kind)
	}
	return nil
}

func (m *ExportRequestMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExportRequestMessageFromJSON decodes and validates a message body.
func ExportRequestMessageFromJSON(data []byte) (*ExportRequestMessage, error) {
	var msg ExportRequestMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
