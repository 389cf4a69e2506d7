package models

import (
	"encoding/json"
	"time"
)

// DeviceMessage is a message record as served by GET /messages.
type DeviceMessage struct {
	ID         string          `json:"id"`
	TenantID   string          `json:"tenantId"`
	AppID      string          `json:"appId"`
	DeviceID   string          `json:"deviceId"`
	Topic      string          `json:"topic"`
	ReceivedAt time.Time       `json:"receivedAt"`
	Message    json.RawMessage `json:"message"`
}
