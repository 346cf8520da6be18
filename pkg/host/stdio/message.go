package stdio

import (
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"github.com/walteh/previewrc/pkg/session"
)

// Inbound message types
const (
	TypePreviewDiff    = "previewDiff"
	TypeOpenFile       = "openFile"
	TypeProvideContent = "provideContent"
	TypeDidClose       = "didClose"
)

// Outbound commands and reply types
const (
	CommandOpen        = "vscode.open"
	CommandDiff        = "vscode.diff"
	CommandRevealRange = "revealRange"
	CommandShowError   = "showError"

	TypeContent = "content"
	TypeDone    = "done"
	TypeError   = "error"
)

// message builds one outbound JSON object
type message struct {
	raw []byte
	err error
}

func newMessage() *message {
	return &message{raw: []byte("{}")}
}

func (m *message) set(path string, value interface{}) *message {
	if m.err != nil {
		return m
	}
	m.raw, m.err = sjson.SetBytes(m.raw, path, value)
	return m
}

// setRaw copies a JSON value verbatim, skipping it when absent
func (m *message) setRaw(path string, value gjson.Result) *message {
	if m.err != nil || !value.Exists() {
		return m
	}
	m.raw, m.err = sjson.SetRawBytes(m.raw, path, []byte(value.Raw))
	return m
}

func (m *message) bytes() ([]byte, error) {
	return m.raw, m.err
}

// parseRange reads a {start:{line,column},end:{line,column}} object
func parseRange(v gjson.Result) *session.Range {
	if !v.IsObject() {
		return nil
	}
	return &session.Range{
		Start: session.Position{Line: int(v.Get("start.line").Int()), Column: int(v.Get("start.column").Int())},
		End:   session.Position{Line: int(v.Get("end.line").Int()), Column: int(v.Get("end.column").Int())},
	}
}
