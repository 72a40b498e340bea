package rpc

import (
	"encoding/json"
	"testing"
)

func TestCapabilities_EmptyFieldsMarshalAsObjects(t *testing.T) {
	caps := Capabilities{}
	data, err := json.Marshal(&caps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var decoded map[string]json.RawMessage
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, field := range []string{"experimental", "sampling", "logging", "completions", "roots", "prompts", "resources", "tools", "elicitation"} {
		raw, ok := decoded[field]
		if !ok {
			t.Fatalf("missing field %q in %s", field, data)
		}
		if string(raw) != "{}" {
			t.Errorf("field %q: got %s, want {}", field, raw)
		}
	}
}

func TestNewInitializeRequest(t *testing.T) {
	req, err := NewInitializeRequest(1, DefaultClientInfo, *EmptyCapabilities())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Method != MethodInitialize {
		t.Errorf("got method %q, want %q", req.Method, MethodInitialize)
	}
	var params InitializeParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if params.ProtocolVersion != DefaultProtocolVersion {
		t.Errorf("got protocol version %q, want %q", params.ProtocolVersion, DefaultProtocolVersion)
	}
}
