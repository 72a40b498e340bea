package transfer

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	gojson "github.com/goccy/go-json"

	"github.com/viant/xfer/rpc"
)

const (
	sessionHeaderName = "Mcp-Session-Id"
	sseMimePrefix     = "text/event-stream"
)

// invalidSessionPattern is the case-insensitive body pattern spec §4.4 step
// 4 uses to recognize an expired/unknown MCP session.
var invalidSessionPattern = regexp.MustCompile(`(?i)session.*?(not found|expired)|no valid session`)

// MCP is the MCP-specialized Transfer (spec §4.4): JSON-RPC framing over
// HTTP, dual-mode (buffered JSON or SSE) response handling chosen from
// headers, and the automatic initialize/notify/retry-on-invalid-session
// protocol. It embeds *HTTP (which holds the shared Base) and keeps its own
// SSEState, matching the composition
// design note "McpTransfer = SseTransfer + McpState".
type MCP struct {
	*HTTP

	rpcMessage *rpc.Message

	sessionID           string
	lastEventID         string
	responseContentType string
	httpStatus          int
	reinitAttempted     bool

	sseState *SSEState

	initializeTransfer *MCP

	internalErrorHandler func(info Info, eng Engine) bool
	onMCPMessage         func(msg *rpc.Message, eng Engine) bool
	onInitialized        func(sessionID string)
	listener             rpc.Listener
}

// NewMCP constructs an MCP Transfer: POST, JSON content type, and an Accept
// header declaring support for both response modes (spec §6 wire contract).
func NewMCP(url string, opts ...Option) (*MCP, error) {
	h, err := NewHTTP(url, opts...)
	if err != nil {
		return nil, err
	}
	if err := h.SetMethod("POST"); err != nil {
		return nil, err
	}
	h.SetHeader("Content-Type", "application/json")
	h.SetHeader("Accept", "application/json, text/event-stream")

	m := &MCP{HTTP: h, sseState: NewSSEState()}
	// streamable until proven otherwise: spec §3 "streamable: ... true iff
	// ... the transfer type forces it (SSE/MCP until proven otherwise)".
	m.Base().Streamable = true
	return m, nil
}

// SetRPCMessage keeps the body serialization in sync with message, per the
// Transfer invariant in spec §3.
func (m *MCP) SetRPCMessage(msg *rpc.Message) error {
	data, err := gojson.Marshal(msg)
	if err != nil {
		return fmt.Errorf("transfer: failed to encode rpc message: %w", err)
	}
	m.rpcMessage = msg
	return m.HTTP.SetBody(data, "application/json")
}

// RPCMessage returns the currently configured message, if any.
func (m *MCP) RPCMessage() *rpc.Message { return m.rpcMessage }

// SetOnMCPMessage installs the hook invoked per decoded JSON-RPC message,
// whether delivered from an SSE event or a buffered response. Returning
// false stops processing any further messages in the same batch/stream.
func (m *MCP) SetOnMCPMessage(fn func(msg *rpc.Message, eng Engine) bool) {
	m.onMCPMessage = fn
}

// SetListener installs an observability hook that sees every decoded
// message without participating in dispatch (spec §6.1).
func (m *MCP) SetListener(l rpc.Listener) { m.listener = l }

// SessionID returns the currently captured Mcp-Session-Id.
func (m *MCP) SessionID() string { return m.sessionID }

// SetSessionID sets or clears Mcp-Session-Id, per spec §3 ("when set,
// auto-populates header Mcp-Session-Id; when cleared, the header is
// removed"), mirroring the mutation to initialize_transfer if present
// (spec §4.4 "Redirect & option propagation").
func (m *MCP) SetSessionID(id string) {
	m.sessionID = id
	m.HTTP.SetHeader(sessionHeaderName, id)
	if m.initializeTransfer != nil {
		m.initializeTransfer.HTTP.SetHeader(sessionHeaderName, id)
	}
}

// SetLastEventID sets Last-Event-ID for stream resumption.
func (m *MCP) SetLastEventID(id string) {
	m.lastEventID = id
	m.HTTP.SetHeader("Last-Event-ID", id)
}

// SetHeader overrides HTTP.SetHeader to mirror the mutation onto
// initializeTransfer if present, per spec §4.4's propagation rule.
func (m *MCP) SetHeader(name, value string) {
	m.HTTP.SetHeader(name, value)
	if m.initializeTransfer != nil {
		m.initializeTransfer.HTTP.SetHeader(name, value)
	}
}

// SetBearerToken overrides HTTP.SetBearerToken so the propagation rule
// above also covers Authorization.
func (m *MCP) SetBearerToken(token string) { m.SetHeader("Authorization", "Bearer "+token) }

// Clone returns a fresh MCP Transfer for the same URL, matching HTTP's
// clone semantics plus MCP's own per-run state reset.
func (m *MCP) Clone() *MCP {
	h := m.HTTP.Clone()
	h.SetHeader("Content-Type", "application/json")
	h.SetHeader("Accept", "application/json, text/event-stream")
	clone := &MCP{HTTP: h, sseState: NewSSEState()}
	clone.Base().Streamable = true
	return clone
}

// HandleHeaderLine implements the dual-mode transition rule (spec §4.4):
// a new status line resets http_status and re-asserts Streamable (so a
// redirect's buffered 30x doesn't poison a later SSE final response); the
// blank line ending headers commits Streamable based on the final
// content-type and status.
func (m *MCP) HandleHeaderLine(line []byte, eng Engine) {
	trimmed := strings.TrimRight(string(line), "\r\n")
	if strings.HasPrefix(trimmed, "HTTP/") {
		parts := strings.SplitN(trimmed, " ", 3)
		if len(parts) >= 2 {
			if code, err := strconv.Atoi(parts[1]); err == nil {
				m.httpStatus = code
			}
		}
		m.Base().Streamable = true
		return
	}
	if trimmed == "" {
		if strings.HasPrefix(strings.ToLower(m.responseContentType), sseMimePrefix) && m.httpStatus < 400 {
			m.Base().Streamable = true
		} else {
			m.Base().Streamable = false
		}
		return
	}
	idx := strings.Index(trimmed, ":")
	if idx < 0 {
		return
	}
	name := strings.TrimSpace(trimmed[:idx])
	value := strings.TrimSpace(trimmed[idx+1:])
	switch strings.ToLower(name) {
	case "content-type":
		m.responseContentType = value
	case strings.ToLower(sessionHeaderName):
		m.sessionID = value
	}
}

// HandleBodyChunk always appends to the stream buffer; in SSE mode it feeds
// the SSE parser and dispatches each decoded event's JSON-RPC payload, in
// buffered mode it defers parsing to HandleReady (spec §4.4 two modes).
func (m *MCP) HandleBodyChunk(data []byte, eng Engine) bool {
	b := m.Base()
	b.StreamBuf.Append(data)
	if !b.Streamable {
		return true
	}
	cont := true
	for _, ev := range m.sseState.Feed(data) {
		if ev.ID != "" {
			m.lastEventID = ev.ID
		}
		if strings.TrimSpace(ev.Data) == "" {
			continue
		}
		if !m.dispatchRPC([]byte(ev.Data), eng) {
			cont = false
		}
	}
	if !cont {
		b.StreamAborted = true
	}
	return cont
}

// dispatchRPC decodes data as a single JSON-RPC message or a batch (spec
// §9's unambiguous array-of-objects test) and delivers each to the MCP
// message hook.
func (m *MCP) dispatchRPC(data []byte, eng Engine) bool {
	if rpc.IsBatchPayload(data) {
		var raws []json.RawMessage
		if err := gojson.Unmarshal(data, &raws); err == nil {
			cont := true
			for _, raw := range raws {
				msg, err := rpc.ParseMessage(raw)
				if err != nil {
					continue
				}
				if !m.deliver(msg, eng) {
					cont = false
				}
			}
			return cont
		}
	}
	msg, err := rpc.ParseMessage(data)
	if err != nil {
		return true
	}
	return m.deliver(msg, eng)
}

func (m *MCP) deliver(msg *rpc.Message, eng Engine) bool {
	if m.listener != nil {
		m.listener(msg)
	}
	if m.onMCPMessage != nil {
		return m.onMCPMessage(msg, eng)
	}
	return true
}

// HandleReady parses the buffered body in buffered mode (spec §4.4
// "Buffered JSON mode") and synthesizes the error hook for status ≥ 400
// (spec §7 "MCP Transfers do synthesize one").
func (m *MCP) HandleReady(info Info, eng Engine) {
	b := m.Base()
	if !b.Streamable {
		data := b.StreamBuf.Peek()
		if info.StatusCode >= 400 {
			m.HandleError(fmt.Sprintf("HTTP returned error: %d", info.StatusCode), "HTTP_ERROR", info, eng)
			return
		}
		if len(data) > 0 {
			m.dispatchRPC(data, eng)
		}
	}
	dispatchReady(b, info, eng)
}

// HandleError routes through the internal error handler (invalid-session
// recovery) before the user's error hook, per spec §4.4 step 4.
func (m *MCP) HandleError(msg, code string, info Info, eng Engine) {
	if m.internalErrorHandler != nil && m.internalErrorHandler(info, eng) {
		return
	}
	dispatchError(m.Base(), msg, code, info, eng)
}

// EnableAutoInitialize wires the automatic initialize -> notifications/initialized
// -> main chain described in spec §4.4. clientInfo/capabilities default when
// nil; onInitialized, if provided, fires once the session id is captured.
func (m *MCP) EnableAutoInitialize(clientInfo *rpc.ClientInfo, capabilities *rpc.Capabilities, onInitialized func(sessionID string)) error {
	init := m.Clone()

	ci := rpc.DefaultClientInfo
	if clientInfo != nil {
		ci = *clientInfo
	}
	caps := rpc.EmptyCapabilities()
	if capabilities != nil {
		caps = capabilities
	}
	req, err := rpc.NewInitializeRequest(nil, ci, *caps)
	if err != nil {
		return err
	}
	if err := init.SetRPCMessage(rpc.NewRequestMessage(req)); err != nil {
		return err
	}

	m.initializeTransfer = init
	m.onInitialized = onInitialized

	init.SetOnMCPMessage(func(msg *rpc.Message, eng Engine) bool {
		if msg.IsError() {
			code, errMsg := extractError(msg)
			wrapped := fmt.Sprintf("MCP initialization error: %s (Code: %d)", errMsg, code)
			dispatchError(m.Base(), wrapped, "MCP_INIT_ERROR", Info{}, eng)
			return false
		}
		if msg.Type != rpc.MessageTypeResponse || msg.Response == nil {
			return true
		}
		if !rpc.EqualRequestId(msg.Response.Id, req.Id) {
			return true
		}

		sid := init.SessionID()
		m.SetSessionID(sid)
		if m.onInitialized != nil {
			m.onInitialized(sid)
		}

		notify := init.Clone()
		notification, notifyErr := rpc.NewInitializedNotification()
		if notifyErr == nil {
			notifyErr = notify.SetRPCMessage(rpc.NewNotificationMessage(notification))
		}
		if notifyErr != nil {
			dispatchError(m.Base(), "MCP initialization error: "+notifyErr.Error(), "MCP_INIT_ERROR", Info{}, eng)
			return false
		}
		notify.SetSessionID(sid)
		notify.Base().AppendNext(m)
		init.Base().AppendNext(notify)
		return false
	})

	init.SetOnError(func(msg, code string, info Info, eng Engine) {
		dispatchError(m.Base(), "MCP initialization error: "+msg, code, info, eng)
	})
	init.SetOnTimeout(func(kind TimeoutKind, elapsedMs int64, eng Engine) {
		dispatchTimeout(m.Base(), kind, elapsedMs, eng)
	})

	if m.SessionID() == "" {
		m.Base().SetBefore(init, false, m)
	} else {
		m.internalErrorHandler = m.checkInvalidSession
	}
	return nil
}

// checkInvalidSession is the default internal error handler installed by
// EnableAutoInitialize when the main Transfer already carries a session id
// at configuration time (spec §4.4 step 4). It caps recovery at one retry
// per submission (spec §9 open question resolution).
func (m *MCP) checkInvalidSession(info Info, eng Engine) bool {
	if m.reinitAttempted || m.initializeTransfer == nil {
		return false
	}
	body := m.Base().StreamBuf.Peek()
	if info.StatusCode != 404 && !invalidSessionPattern.Match(body) {
		return false
	}
	m.reinitAttempted = true
	m.SetSessionID("")
	m.Base().SetBefore(m.initializeTransfer, false, m)
	eng.Submit(m, true, 0)
	return true
}

func extractError(msg *rpc.Message) (int, string) {
	if msg.Type == rpc.MessageTypeError && msg.ErrorMessage != nil {
		return msg.ErrorMessage.Error.Code, msg.ErrorMessage.Error.Message
	}
	if msg.Response != nil && msg.Response.Error != nil {
		return msg.Response.Error.Error.Code, msg.Response.Error.Error.Message
	}
	return 0, "unknown error"
}
