package transfer

import (
	"testing"

	"github.com/viant/xfer/rpc"
	"github.com/viant/xfer/stream"
)

func TestMCP_HandleHeaderLine_StatusLineResetsStreamable(t *testing.T) {
	m, _ := NewMCP("http://a.example")
	m.Base().Streamable = false

	m.HandleHeaderLine([]byte("HTTP/1.1 200 OK\r\n"), nil)
	if !m.Base().Streamable || m.httpStatus != 200 {
		t.Fatalf("expected status line to reset streamable and capture status, status=%d streamable=%v", m.httpStatus, m.Base().Streamable)
	}
}

func TestMCP_HandleHeaderLine_BlankLineCommitsSSEMode(t *testing.T) {
	m, _ := NewMCP("http://a.example")
	m.HandleHeaderLine([]byte("HTTP/1.1 200 OK\r\n"), nil)
	m.HandleHeaderLine([]byte("Content-Type: text/event-stream\r\n"), nil)
	m.HandleHeaderLine([]byte("Mcp-Session-Id: sess-1\r\n"), nil)
	m.HandleHeaderLine([]byte("\r\n"), nil)

	if !m.Base().Streamable {
		t.Fatalf("expected SSE content type + 2xx status to commit streamable=true")
	}
	if m.SessionID() != "sess-1" {
		t.Fatalf("expected session id captured, got %q", m.SessionID())
	}
}

func TestMCP_HandleHeaderLine_BlankLineCommitsBufferedMode(t *testing.T) {
	m, _ := NewMCP("http://a.example")
	m.HandleHeaderLine([]byte("HTTP/1.1 200 OK\r\n"), nil)
	m.HandleHeaderLine([]byte("Content-Type: application/json\r\n"), nil)
	m.HandleHeaderLine([]byte("\r\n"), nil)

	if m.Base().Streamable {
		t.Fatalf("expected JSON content type to commit streamable=false")
	}
}

func TestMCP_HandleHeaderLine_ErrorStatusCommitsBufferedMode(t *testing.T) {
	m, _ := NewMCP("http://a.example")
	m.HandleHeaderLine([]byte("HTTP/1.1 500 Internal Server Error\r\n"), nil)
	m.HandleHeaderLine([]byte("Content-Type: text/event-stream\r\n"), nil)
	m.HandleHeaderLine([]byte("\r\n"), nil)

	if m.Base().Streamable {
		t.Fatalf("expected status >= 400 to commit streamable=false regardless of content type")
	}
}

func TestMCP_HandleBodyChunk_SSEModeDispatchesMessage(t *testing.T) {
	m, _ := NewMCP("http://a.example")
	m.Base().Streamable = true

	var received *rpc.Message
	m.SetOnMCPMessage(func(msg *rpc.Message, eng Engine) bool {
		received = msg
		return true
	})

	frame := "data: {\"jsonrpc\":\"2.0\",\"id\":\"1\",\"result\":{}}\n\n"
	cont := m.HandleBodyChunk([]byte(frame), &fakeEngine{})
	if !cont {
		t.Fatalf("expected continue=true")
	}
	if received == nil || received.Type != rpc.MessageTypeResponse {
		t.Fatalf("expected a response message delivered, got %+v", received)
	}
}

func TestMCP_HandleBodyChunk_StreamAbortedWhenHandlerRejects(t *testing.T) {
	m, _ := NewMCP("http://a.example")
	m.Base().Streamable = true
	m.SetOnMCPMessage(func(msg *rpc.Message, eng Engine) bool { return false })

	frame := "data: {\"jsonrpc\":\"2.0\",\"id\":\"1\",\"result\":{}}\n\n"
	cont := m.HandleBodyChunk([]byte(frame), &fakeEngine{})
	if cont {
		t.Fatalf("expected continue=false")
	}
	if !m.Base().StreamAborted {
		t.Fatalf("expected StreamAborted set")
	}
}

func TestMCP_HandleReady_BufferedModeDispatchesMessage(t *testing.T) {
	m, _ := NewMCP("http://a.example")
	m.Base().Streamable = false
	m.Base().StreamBuf.Append([]byte(`{"jsonrpc":"2.0","id":"1","result":{}}`))

	var received *rpc.Message
	m.SetOnMCPMessage(func(msg *rpc.Message, eng Engine) bool {
		received = msg
		return true
	})

	m.HandleReady(Info{StatusCode: 200}, &fakeEngine{})
	if received == nil {
		t.Fatalf("expected buffered-mode dispatch to deliver the message")
	}
}

func TestMCP_HandleReady_BufferedModeStatusErrorSynthesizesError(t *testing.T) {
	m, _ := NewMCP("http://a.example")
	m.Base().Streamable = false
	m.Base().StreamBuf.Append([]byte(`{"error":"server broke"}`))

	var gotMsg, gotCode string
	m.Base().SetOnError(func(msg, code string, info Info, eng Engine) {
		gotMsg = msg
		gotCode = code
	})

	var gotReady bool
	m.Base().SetOnReady(func(info Info, buf *stream.Buffer, eng Engine) {
		gotReady = true
	})

	m.HandleReady(Info{StatusCode: 500}, &fakeEngine{})
	if gotCode != "HTTP_ERROR" || gotMsg == "" {
		t.Fatalf("expected synthesized HTTP_ERROR, got msg=%q code=%q", gotMsg, gotCode)
	}
	if gotReady {
		t.Fatalf("expected on_ready to NOT fire when on_error fires for the same completion")
	}
}

// TestMCP_HandleReady_RoutesErrorThroughInternalErrorHandler drives the real
// Engine-facing path (HandleReady, not checkInvalidSession directly) to
// confirm a buffered-mode HTTP 404 actually reaches the internalErrorHandler
// installed by EnableAutoInitialize, per spec §4.4 step 4.
func TestMCP_HandleReady_RoutesErrorThroughInternalErrorHandler(t *testing.T) {
	m, _ := NewMCP("http://a.example")
	m.SetSessionID("stale-session")
	if err := m.EnableAutoInitialize(nil, nil, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var gotError bool
	m.Base().SetOnError(func(msg, code string, info Info, eng Engine) {
		gotError = true
	})

	eng := &fakeEngine{}
	m.Base().Streamable = false
	m.Base().StreamBuf.Append([]byte("session not found"))
	m.HandleReady(Info{StatusCode: 404}, eng)

	if !m.reinitAttempted {
		t.Fatalf("expected invalid-session recovery to have run via HandleReady")
	}
	if len(eng.submitted) != 1 {
		t.Fatalf("expected one resubmission from recovery, got %d", len(eng.submitted))
	}
	if gotError {
		t.Fatalf("expected on_error to NOT fire when internalErrorHandler recovers")
	}
}

func TestMCP_EnableAutoInitialize_AttachesBeforeWhenNoSession(t *testing.T) {
	m, _ := NewMCP("http://a.example")
	if err := m.EnableAutoInitialize(nil, nil, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Base().Before == nil {
		t.Fatalf("expected Before attached when no session id is set")
	}
	if m.initializeTransfer == nil {
		t.Fatalf("expected initializeTransfer recorded")
	}
}

func TestMCP_EnableAutoInitialize_InstallsInternalErrorHandlerWhenSessionPresent(t *testing.T) {
	m, _ := NewMCP("http://a.example")
	m.SetSessionID("already-have-one")
	if err := m.EnableAutoInitialize(nil, nil, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Base().Before != nil {
		t.Fatalf("expected no Before attachment when a session id is already present")
	}
	if m.internalErrorHandler == nil {
		t.Fatalf("expected internalErrorHandler installed")
	}
}

func TestMCP_EnableAutoInitialize_SuccessChainsNotifyThenMain(t *testing.T) {
	m, _ := NewMCP("http://a.example")
	var capturedSession string
	if err := m.EnableAutoInitialize(nil, nil, func(sessionID string) { capturedSession = sessionID }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	init := m.initializeTransfer
	req := init.RPCMessage().Request

	init.HandleHeaderLine([]byte("Mcp-Session-Id: sess-xyz\r\n"), nil)
	resp := rpc.NewResponse(req.Id, []byte(`{}`))
	msg := rpc.NewResponseMessage(resp)

	eng := &fakeEngine{}
	cont := init.onMCPMessage(msg, eng)
	if cont {
		t.Fatalf("expected onMCPMessage to return false, stopping further dispatch on this batch")
	}
	if capturedSession != "sess-xyz" {
		t.Fatalf("expected onInitialized called with captured session id, got %q", capturedSession)
	}
	if m.SessionID() != "sess-xyz" {
		t.Fatalf("expected main transfer session id set, got %q", m.SessionID())
	}
	if init.Base().Next == nil {
		t.Fatalf("expected init.Next to be the notify transfer")
	}
	notify := init.Base().Next
	if notify.Base().Next != Transfer(m) {
		t.Fatalf("expected notify.Next to be the main transfer")
	}
}

func TestMCP_EnableAutoInitialize_ErrorDispatchesWrappedError(t *testing.T) {
	m, _ := NewMCP("http://a.example")
	if err := m.EnableAutoInitialize(nil, nil, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	init := m.initializeTransfer

	var gotMsg, gotCode string
	m.Base().SetOnError(func(msg, code string, info Info, eng Engine) {
		gotMsg = msg
		gotCode = code
	})

	errMsg := rpc.NewErrorMessage(rpc.NewError("1", rpc.NewInnerError(-32000, "boom", nil)))
	cont := init.onMCPMessage(errMsg, &fakeEngine{})
	if cont {
		t.Fatalf("expected false after an init error")
	}
	if gotCode != "MCP_INIT_ERROR" || gotMsg == "" {
		t.Fatalf("expected wrapped init error dispatched, got msg=%q code=%q", gotMsg, gotCode)
	}
}

func TestMCP_CheckInvalidSession_CapsAtOneRetry(t *testing.T) {
	m, _ := NewMCP("http://a.example")
	m.SetSessionID("stale-session")
	if err := m.EnableAutoInitialize(nil, nil, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	eng := &fakeEngine{}
	m.Base().StreamBuf.Append([]byte("session not found"))

	handled := m.checkInvalidSession(Info{StatusCode: 404}, eng)
	if !handled {
		t.Fatalf("expected first invalid-session error to be handled")
	}
	if !m.reinitAttempted {
		t.Fatalf("expected reinitAttempted set after first handling")
	}
	if len(eng.submitted) != 1 {
		t.Fatalf("expected one resubmission, got %d", len(eng.submitted))
	}
	if m.SessionID() != "" {
		t.Fatalf("expected session id cleared")
	}

	handled = m.checkInvalidSession(Info{StatusCode: 404}, eng)
	if handled {
		t.Fatalf("expected second invalid-session error to NOT be handled (one retry cap)")
	}
	if len(eng.submitted) != 1 {
		t.Fatalf("expected no additional resubmission")
	}
}

func TestMCP_CheckInvalidSession_IgnoresUnrelatedErrors(t *testing.T) {
	m, _ := NewMCP("http://a.example")
	m.SetSessionID("stale-session")
	if err := m.EnableAutoInitialize(nil, nil, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m.Base().StreamBuf.Append([]byte("internal server error"))

	handled := m.checkInvalidSession(Info{StatusCode: 500}, &fakeEngine{})
	if handled {
		t.Fatalf("expected unrelated 500 error to not be treated as invalid session")
	}
}
