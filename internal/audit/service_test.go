package audit

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/friendsincode/panelforge/internal/events"
	"github.com/friendsincode/panelforge/internal/models"
)

func testService(t *testing.T) (*Service, *events.Bus, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(&models.AuditLog{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	bus := events.NewBus()
	return NewService(db, bus, zerolog.Nop()), bus, db
}

func TestLogAndQuery(t *testing.T) {
	svc, _, _ := testService(t)
	ctx := context.Background()

	for _, action := range []models.AuditAction{
		models.AuditActionImportCreate,
		models.AuditActionPlanRun,
		models.AuditActionPlanRun,
	} {
		if err := svc.Log(ctx, &models.AuditLog{Action: action, ResourceType: "test"}); err != nil {
			t.Fatalf("Log(%s) error = %v", action, err)
		}
	}

	logs, total, err := svc.Query(ctx, QueryFilters{})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if total != 3 || len(logs) != 3 {
		t.Fatalf("got %d logs (total %d), want 3", len(logs), total)
	}

	action := models.AuditActionPlanRun
	logs, total, err = svc.Query(ctx, QueryFilters{Action: &action})
	if err != nil {
		t.Fatalf("Query(action) error = %v", err)
	}
	if total != 2 || len(logs) != 2 {
		t.Fatalf("got %d plan.run logs (total %d), want 2", len(logs), total)
	}
}

func TestStartRecordsBusEvents(t *testing.T) {
	svc, bus, db := testService(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		svc.Start(ctx)
	}()

	// Give the service a moment to subscribe before publishing.
	time.Sleep(50 * time.Millisecond)

	bus.Publish(events.EventAuditAPIKeyCreate, events.Payload{
		"key_id":   "key-1",
		"key_name": "ci-bot",
	})

	deadline := time.Now().Add(2 * time.Second)
	for {
		var count int64
		if err := db.Model(&models.AuditLog{}).Count(&count).Error; err != nil {
			t.Fatalf("count: %v", err)
		}
		if count == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("audit entry never recorded")
		}
		time.Sleep(10 * time.Millisecond)
	}

	var entry models.AuditLog
	if err := db.First(&entry).Error; err != nil {
		t.Fatalf("load entry: %v", err)
	}
	if entry.Action != models.AuditActionAPIKeyCreate {
		t.Errorf("action = %q, want apikey.create", entry.Action)
	}
	if entry.ResourceID != "key-1" {
		t.Errorf("resource id = %q, want key-1", entry.ResourceID)
	}
	if entry.Details["key_name"] != "ci-bot" {
		t.Errorf("details key_name = %v, want ci-bot", entry.Details["key_name"])
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("audit service did not stop")
	}
}
