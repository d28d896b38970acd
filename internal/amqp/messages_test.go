package amqp

import (
	"errors"
	"testing"
	"time"
)

func TestNewExportRequestMessage(t *testing.T) {
	before := time.Now().UTC()
	msg := NewExportRequestMessage(ExportQuote)
	if msg.ID == "" || msg.Kind != ExportQuote {
		t.Fatalf("msg = %+v", msg)
	}
	if msg.Timestamp.Before(before.Add(-time.Second)) {
		t.Fatalf("timestamp %v too old", msg.Timestamp)
	}
	if other := NewExportRequestMessage(ExportQuote); other.ID == msg.ID {
		t.Fatalf("ids must be unique")
	}
}

func TestExportRequestMessage_JSON(t *testing.T) {
	msg := NewExportRequestMessage(ExportQuote)
	msg.FamilyID = 7
	msg.Quantities = map[string]string{"r1": "2.5"}

	data, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	got, err := ExportRequestMessageFromJSON(data)
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	if got.ID != msg.ID || got.FamilyID != 7 || got.Quantities["r1"] != "2.5" {
		t.Fatalf("decoded = %+v", got)
	}
}

func TestExportRequestMessage_Validate(t *testing.T) {
	cases := []struct {
		name string
		msg  ExportRequestMessage
		ok   bool
	}{
		{"aggregate", ExportRequestMessage{ID: "1", Kind: ExportAggregate, Start: "2024-01-01", End: "2024-01-31"}, true},
		{"aggregate without range", ExportRequestMessage{ID: "1", Kind: ExportAggregate}, false},
		{"comparison", ExportRequestMessage{ID: "1", Kind: ExportComparison, FamilyID: 1}, true},
		{"comparison without family", ExportRequestMessage{ID: "1", Kind: ExportComparison}, false},
		{"quote without quantities", ExportRequestMessage{ID: "1", Kind: ExportQuote, FamilyID: 1}, false},
		{"missing id", ExportRequestMessage{Kind: ExportComparison, FamilyID: 1}, false},
		{"unknown kind", ExportRequestMessage{ID: "1", Kind: "csv"}, false},
	}
	for _, tc := range cases {
		err := tc.msg.Validate()
		if tc.ok && err != nil {
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		}
		if !tc.ok && !errors.Is(err, ErrInvalidMessage) {
			t.Fatalf("%s: expected ErrInvalidMessage, got %v", tc.name, err)
		}
	}
}

func TestExportRequestMessage_InvalidJSON(t *testing.T) {
	if _, err := ExportRequestMessageFromJSON([]byte(`{"id":`)); !errors.Is(err, ErrInvalidMessage) {
		t.Fatalf("expected ErrInvalidMessage, got %v", err)
	}
}
