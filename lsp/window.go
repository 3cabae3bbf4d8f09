package lsp

import "fmt"

// MessageType is the severity of a window/showMessage or window/logMessage.
type MessageType uint32

const (
	MessageError MessageType = iota + 1
	MessageWarning
	MessageInfo
	MessageLog
	MessageDebug
)

func (t MessageType) String() string {
	switch t {
	case MessageError:
		return "error"
	case MessageWarning:
		return "warning"
	case MessageInfo:
		return "info"
	case MessageLog:
		return "log"
	case MessageDebug:
		return "debug"
	}
	return fmt.Sprintf("(unknown message type: %d)", uint32(t))
}

type LogMessageParams struct {
	Type    MessageType `json:"type"`
	Message string      `json:"message"`
}

type ShowMessageParams struct {
	Type    MessageType `json:"type"`
	Message string      `json:"message"`
}
