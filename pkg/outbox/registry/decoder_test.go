package registry

import (
	"encoding/json"
	"testing"

	"github.com/diegocastellanos/booklend-backend/pkg/enums"
)

func TestDecoderRegistryDecodesRegisteredVersion(t *testing.T) {
	reg := NewDecoderRegistry()
	reg.Register(enums.EventLoanApproved, 1, func(payload json.RawMessage) (interface{}, error) {
		var decoded map[string]string
		return decoded, json.Unmarshal(payload, &decoded)
	})

	out, err := reg.Decode(enums.EventLoanApproved, 1, json.RawMessage(`{"status":"approved"}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	decoded, ok := out.(map[string]string)
	if !ok || decoded["status"] != "approved" {
		t.Fatalf("decoded %+v", out)
	}
}

func TestDecoderRegistryRejectsUnknownVersion(t *testing.T) {
	reg := NewDecoderRegistry()
	reg.Register(enums.EventLoanApproved, 1, func(json.RawMessage) (interface{}, error) {
		return nil, nil
	})

	if _, err := reg.Decode(enums.EventLoanApproved, 2, json.RawMessage(`{}`)); err == nil {
		t.Fatal("expected error for unregistered version")
	}
}
