package rpc

import (
	"encoding/json"
	"errors"

	gojson "github.com/goccy/go-json"
)

// BatchRequest is a JSON-RPC 2.0 batch request.
type BatchRequest []*Request

// BatchResponse is a JSON-RPC 2.0 batch response.
type BatchResponse []*Response

// UnmarshalJSON rejects the empty-array batch, which is invalid per spec.
func (b *BatchRequest) UnmarshalJSON(data []byte) error {
	if string(data) == "[]" {
		return errors.New("rpc: invalid batch request: empty array")
	}
	var requests []*Request
	if err := gojson.Unmarshal(data, &requests); err != nil {
		return err
	}
	if len(requests) == 0 {
		return errors.New("rpc: invalid batch request: empty array")
	}
	*b = requests
	return nil
}

// NewBatchResponseFromResponses builds a BatchResponse out of successful responses.
func NewBatchResponseFromResponses(responses []*Response) BatchResponse {
	out := make(BatchResponse, 0, len(responses))
	out = append(out, responses...)
	return out
}

// IsBatchPayload implements spec §9's "unambiguous test": a non-empty
// top-level JSON array whose first element is an object is a batch; anything
// else (including a single object whose "result" field happens to be an
// array) is not. Elements after the first are not inspected.
func IsBatchPayload(data []byte) bool {
	var probe []json.RawMessage
	if err := gojson.Unmarshal(data, &probe); err != nil {
		return false
	}
	if len(probe) == 0 {
		return false
	}
	var obj map[string]json.RawMessage
	return gojson.Unmarshal(probe[0], &obj) == nil
}
