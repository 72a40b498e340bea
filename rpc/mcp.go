package rpc

import "encoding/json"

// ClientInfo identifies the implementation driving an MCP session.
type ClientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// DefaultClientInfo is used by transfer.MCP.EnableAutoInitialize when the
// caller supplies no ClientInfo of its own.
var DefaultClientInfo = ClientInfo{Name: "xfer", Version: "1.0.0"}

// Capabilities is the MCP client capabilities value. Every field is
// semantically an object; spec §4.4 requires each to serialize as `{}`
// rather than `null`/`[]` when unset, which a plain `map[string]any` zero
// value (nil) would otherwise marshal as `null`. capabilityField guarantees
// the `{}` rendering regardless of whether the caller ever touched the field.
type Capabilities struct {
	Experimental capabilityField `json:"experimental"`
	Sampling     capabilityField `json:"sampling"`
	Logging      capabilityField `json:"logging"`
	Completions  capabilityField `json:"completions"`
	Roots        capabilityField `json:"roots"`
	Prompts      capabilityField `json:"prompts"`
	Resources    capabilityField `json:"resources"`
	Tools        capabilityField `json:"tools"`
	Elicitation  capabilityField `json:"elicitation"`
}

// capabilityField marshals as {} when nil, and as the supplied object otherwise.
type capabilityField map[string]interface{}

// MarshalJSON implements the empty-object-not-empty-array rule.
func (c capabilityField) MarshalJSON() ([]byte, error) {
	if c == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(map[string]interface{}(c))
}

// UnmarshalJSON accepts any object payload, including `{}`.
func (c *capabilityField) UnmarshalJSON(data []byte) error {
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*c = m
	return nil
}

// EmptyCapabilities returns a Capabilities value whose every field serializes
// to `{}`, the default used when EnableAutoInitialize receives none.
func EmptyCapabilities() *Capabilities { return &Capabilities{} }

// InitializeParams is the payload of the "initialize" request.
type InitializeParams struct {
	ProtocolVersion string       `json:"protocolVersion"`
	Capabilities    Capabilities `json:"capabilities"`
	ClientInfo      ClientInfo   `json:"clientInfo"`
}

// InitializeResult is the payload of a successful "initialize" response.
type InitializeResult struct {
	ProtocolVersion string          `json:"protocolVersion"`
	Capabilities    json.RawMessage `json:"capabilities,omitempty"`
	ServerInfo      ClientInfo      `json:"serverInfo"`
	Instructions    string          `json:"instructions,omitempty"`
}

// NewInitializeRequest builds the "initialize" request with the fixed
// protocol version the auto-initialize protocol requires (spec §4.4 step 1).
func NewInitializeRequest(id RequestId, clientInfo ClientInfo, capabilities Capabilities) (*Request, error) {
	return NewRequest(id, MethodInitialize, InitializeParams{
		ProtocolVersion: DefaultProtocolVersion,
		Capabilities:    capabilities,
		ClientInfo:      clientInfo,
	})
}

// NewInitializedNotification builds the "notifications/initialized" notification
// sent immediately after a successful initialize handshake.
func NewInitializedNotification() (*Notification, error) {
	return NewNotification(MethodNotificationInitialized, nil)
}
