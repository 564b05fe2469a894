package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"

	"go-chat-hub/pkg/chat"

	"gorm.io/gorm"
)

const defaultQueueSize = 1024

type AuditMetadata struct {
	OldName string `json:"old_name,omitempty"`
	NewName string `json:"new_name,omitempty"`
}

// AuditService persists session membership changes. It observes the hub
// without ever blocking it: events are queued and written by Run, and events
// arriving on a full queue are counted and dropped.
type AuditService struct {
	db      *gorm.DB
	log     *slog.Logger
	queue   chan chat.Event
	dropped atomic.Int64
}

func NewAuditService(db *gorm.DB, log *slog.Logger, queueSize int) *AuditService {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &AuditService{
		db:    db,
		log:   log,
		queue: make(chan chat.Event, queueSize),
	}
}

// Observe queues membership events. Chat messages are ignored.
func (s *AuditService) Observe(evt chat.Event) {
	if !evt.Kind.IsSystem() {
		return
	}
	select {
	case s.queue <- evt:
	default:
		s.dropped.Add(1)
		s.log.Warn("Audit queue full, event dropped", "event_id", evt.ID, "kind", evt.Kind)
	}
}

func (s *AuditService) Dropped() int64 {
	return s.dropped.Load()
}

// Run writes queued events until ctx is done, then flushes what is left.
func (s *AuditService) Run(ctx context.Context) {
	for {
		select {
		case evt := <-s.queue:
			s.write(evt)
		case <-ctx.Done():
			s.flush()
			return
		}
	}
}

func (s *AuditService) flush() {
	for {
		select {
		case evt := <-s.queue:
			s.write(evt)
		default:
			return
		}
	}
}

func (s *AuditService) write(evt chat.Event) {
	if err := s.Record(evt); err != nil {
		s.log.Error("Failed to write audit record", "event_id", evt.ID, "error", err)
	}
}

// Record stores one membership event synchronously.
func (s *AuditService) Record(evt chat.Event) error {
	record, err := recordFor(evt)
	if err != nil {
		return err
	}
	return s.db.Create(&record).Error
}

func recordFor(evt chat.Event) (chat.SessionRecord, error) {
	record := chat.SessionRecord{
		EventID:     evt.ID,
		SessionID:   evt.SessionID,
		Name:        evt.Subject,
		Description: evt.Text,
		Metadata:    "{}",
		CreatedAt:   evt.Timestamp,
	}

	switch evt.Kind {
	case chat.KindJoin:
		record.Action = chat.AuditJoin
	case chat.KindLeave:
		record.Action = chat.AuditLeave
	case chat.KindRename:
		record.Action = chat.AuditRename
		metadata, err := json.Marshal(AuditMetadata{OldName: evt.Previous, NewName: evt.Subject})
		if err != nil {
			return chat.SessionRecord{}, err
		}
		record.Metadata = string(metadata)
	default:
		return chat.SessionRecord{}, fmt.Errorf("audit: %s events are not recorded", evt.Kind)
	}
	return record, nil
}

// GetAuditLogs returns the newest records first, optionally filtered by
// session id, along with the total number of matching records.
func (s *AuditService) GetAuditLogs(sessionID *string, limit int) ([]chat.SessionRecord, int64, error) {
	query := s.db.Model(&chat.SessionRecord{})
	if sessionID != nil {
		query = query.Where("session_id = ?", *sessionID)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var logs []chat.SessionRecord
	err := query.Order("created_at DESC, rowid DESC").
		Limit(limit).
		Find(&logs).Error

	return logs, total, err
}
