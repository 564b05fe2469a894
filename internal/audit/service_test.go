package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"go-chat-hub/internal/storage"
	"go-chat-hub/pkg/chat"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupAuditTestDB(t *testing.T) *gorm.DB {
	db, err := storage.Connect(storage.InMemory)
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}
	t.Cleanup(func() { _ = storage.Close(db) })
	return db
}

func newTestService(t *testing.T, queueSize int) (*AuditService, *gorm.DB) {
	db := setupAuditTestDB(t)
	return NewAuditService(db, logs.GetLoggerFromLevel(slog.LevelError), queueSize), db
}

func TestAuditService_RecordJoin(t *testing.T) {
	service, db := newTestService(t, 0)

	join := chat.NewJoin("s1", "Alice")
	require.NoError(t, service.Record(join))

	var record chat.SessionRecord
	require.NoError(t, db.Where("action = ?", chat.AuditJoin).First(&record).Error)

	assert.Len(t, record.ID, 12)
	assert.Equal(t, join.ID, record.EventID)
	assert.Equal(t, "s1", record.SessionID)
	assert.Equal(t, "Alice", record.Name)
	assert.Equal(t, "Alice entrou no chat", record.Description)
	assert.Equal(t, "{}", record.Metadata)
	assert.WithinDuration(t, join.Timestamp, record.CreatedAt, time.Second)
}

func TestAuditService_RecordRename(t *testing.T) {
	service, db := newTestService(t, 0)

	require.NoError(t, service.Record(chat.NewRename("s1", "Alice", "Alicia")))

	var record chat.SessionRecord
	require.NoError(t, db.Where("action = ?", chat.AuditRename).First(&record).Error)
	assert.Equal(t, "Alicia", record.Name)

	var metadata AuditMetadata
	require.NoError(t, json.Unmarshal([]byte(record.Metadata), &metadata))
	assert.Equal(t, "Alice", metadata.OldName)
	assert.Equal(t, "Alicia", metadata.NewName)
}

func TestAuditService_RecordRejectsMessages(t *testing.T) {
	service, db := newTestService(t, 0)

	err := service.Record(chat.NewMessage("s1", "Alice", "secret"))
	assert.Error(t, err)

	var count int64
	require.NoError(t, db.Model(&chat.SessionRecord{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestAuditService_ObserveIgnoresMessages(t *testing.T) {
	service, _ := newTestService(t, 4)

	service.Observe(chat.NewMessage("s1", "Alice", "hello"))
	assert.Len(t, service.queue, 0)

	service.Observe(chat.NewLeave("s1", "Alice"))
	assert.Len(t, service.queue, 1)
}

func TestAuditService_ObserveDropsWhenFull(t *testing.T) {
	service, _ := newTestService(t, 2)

	for i := 0; i < 5; i++ {
		service.Observe(chat.NewJoin("s1", "Alice"))
	}

	assert.Len(t, service.queue, 2)
	assert.Equal(t, int64(3), service.Dropped())
}

func TestAuditService_RunFlushesOnCancel(t *testing.T) {
	service, _ := newTestService(t, 16)

	service.Observe(chat.NewJoin("s1", "Alice"))
	service.Observe(chat.NewRename("s1", "Alice", "Alicia"))
	service.Observe(chat.NewLeave("s1", "Alicia"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	service.Run(ctx)

	records, total, err := service.GetAuditLogs(nil, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, records, 3)
}

func TestAuditService_RunWritesWhileActive(t *testing.T) {
	service, _ := newTestService(t, 16)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		service.Run(ctx)
		close(done)
	}()

	service.Observe(chat.NewJoin("s1", "Alice"))

	require.Eventually(t, func() bool {
		_, total, err := service.GetAuditLogs(nil, 10)
		return err == nil && total == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-done
}

func TestAuditService_GetAuditLogs(t *testing.T) {
	service, _ := newTestService(t, 0)

	base := time.Now().Add(-time.Minute)
	for i, evt := range []chat.Event{
		chat.NewJoin("s1", "Alice"),
		chat.NewJoin("s2", "Bob"),
		chat.NewLeave("s1", "Alice"),
	} {
		evt.Timestamp = base.Add(time.Duration(i) * time.Second)
		require.NoError(t, service.Record(evt))
	}

	records, total, err := service.GetAuditLogs(nil, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, records, 2)
	assert.Equal(t, chat.AuditLeave, records[0].Action, "newest first")
	assert.Equal(t, "Bob", records[1].Name)

	sessionID := "s1"
	records, total, err = service.GetAuditLogs(&sessionID, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, records, 2)
	for _, record := range records {
		assert.Equal(t, "s1", record.SessionID)
	}
}
