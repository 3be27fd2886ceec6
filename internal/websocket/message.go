package websocket

import (
	"encoding/json"
	"time"
)

// Message WebSocket消息
type Message struct {
	Type      string          `json:"type"`
	SessionID string          `json:"session_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// 消息类型
const (
	// 系统消息
	MessageTypeConnected = "connected"
	MessageTypePing      = "ping"
	MessageTypePong      = "pong"
	MessageTypeError     = "error"

	// 卷轴推送
	MessageTypeReelCommand  = "reel_command"
	MessageTypeReelState    = "reel_state"
	MessageTypeSpinComplete = "spin_complete"
	MessageTypeSFX          = "sfx"

	// 会话操作，客户端发起
	MessageTypeSpin       = "spin"
	MessageTypeSkip       = "skip"
	MessageTypeState      = "state"
	MessageTypeSpinResult = "spin_result"
)

// SpinRequest 客户端转动请求
type SpinRequest struct {
	Bet float64 `json:"bet"`
}

// newMessage 构造消息，data为nil时不带数据
func newMessage(msgType, sessionID string, data interface{}) ([]byte, error) {
	msg := Message{
		Type:      msgType,
		SessionID: sessionID,
		Timestamp: time.Now().UnixMilli(),
	}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		msg.Data = raw
	}
	return json.Marshal(msg)
}
