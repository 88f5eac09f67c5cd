package types

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// Request is the externally-observable unit of pipeline work: one stage
// invocation against one entity, with timings, logs, and credit cost.
type Request struct {
	ID                           string         `gorm:"primaryKey" json:"id"`
	RequestOperand               string         `gorm:"column:request_operand;not null" json:"request_operand"`
	RequestEndpoint              string         `gorm:"column:request_endpoint;not null" json:"request_endpoint"`
	ShortID                      string         `gorm:"column:short_id;index" json:"short_id,omitempty"`
	VideoID                      string         `gorm:"column:video_id;index" json:"video_id,omitempty"`
	SegmentID                    string         `gorm:"column:segment_id;index" json:"segment_id,omitempty"`
	QueryID                      string         `gorm:"column:query_id" json:"query_id,omitempty"`
	UID                          string         `gorm:"column:uid;index" json:"uid"`
	CreditCost                   int            `gorm:"column:credit_cost" json:"credit_cost"`
	Status                       string         `gorm:"column:status;default:'pending'" json:"status"`
	Progress                     int            `gorm:"column:progress" json:"progress"`
	RequestCreated               time.Time      `gorm:"column:request_created" json:"request_created"`
	RequestAcknowledgedTimestamp *time.Time     `gorm:"column:request_acknowledged_timestamp" json:"request_acknowledged_timestamp,omitempty"`
	ServerStartedTimestamp       *time.Time     `gorm:"column:server_started_timestamp" json:"server_started_timestamp,omitempty"`
	ServerCompletedTimestamp     *time.Time     `gorm:"column:server_completed_timestamp" json:"server_completed_timestamp,omitempty"`
	Logs                         datatypes.JSON `gorm:"column:logs;type:jsonb" json:"logs"`
	CreatedAt                    time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt                    time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (Request) TableName() string { return "requests" }

// RequestLog is one append-only entry on a request.
type RequestLog struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

func (r *Request) DecodeLogs() ([]RequestLog, error) {
	if len(r.Logs) == 0 {
		return nil, nil
	}
	var logs []RequestLog
	if err := json.Unmarshal(r.Logs, &logs); err != nil {
		return nil, fmt.Errorf("parse request logs: %w", err)
	}
	return logs, nil
}

// EntityID returns the id of whichever entity the request targets.
func (r *Request) EntityID() string {
	switch r.RequestOperand {
	case OperandShort:
		return r.ShortID
	case OperandVideo:
		return r.VideoID
	case OperandSegment:
		return r.SegmentID
	case OperandQuery:
		return r.QueryID
	default:
		return ""
	}
}
