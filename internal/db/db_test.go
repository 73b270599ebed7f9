package db

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/athenahq/toolgate/internal/config"
	"github.com/athenahq/toolgate/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// openTestDB opens an in-memory SQLite DB with all gateway tables.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := AutoMigrate(gdb); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	return gdb
}

func TestDSN(t *testing.T) {
	cfg := config.MySQLConfig{Host: "10.0.0.5", Port: 3307, User: "gw", Password: "pw", Database: "toolgate"}
	dsn := DSN(cfg)
	if dsn != "gw:pw@tcp(10.0.0.5:3307)/toolgate?parseTime=true&charset=utf8mb4" {
		t.Errorf("dsn = %q", dsn)
	}

	cfg.Password = ""
	if got := DSN(cfg); !strings.HasPrefix(got, "gw@tcp(") {
		t.Errorf("passwordless dsn = %q", got)
	}
}

func TestAllModels(t *testing.T) {
	if got := len(AllModels()); got != 3 {
		t.Errorf("AllModels() has %d entries, want 3", got)
	}
}

func TestGetAPIKey(t *testing.T) {
	gdb := openTestDB(t)
	ctx := context.Background()

	rec, err := GetAPIKey(ctx, gdb, "missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec != nil {
		t.Errorf("expected nil for missing key, got %+v", rec)
	}

	limit := 5
	gdb.Create(&models.APIKey{Key: "tg_abc", UserID: "u1", UsageLimit: &limit, UsageCount: 2})

	rec, err = GetAPIKey(ctx, gdb, "tg_abc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec == nil || rec.UserID != "u1" || rec.UsageCount != 2 {
		t.Errorf("record = %+v", rec)
	}
	if rec.UsageLimit == nil || *rec.UsageLimit != 5 {
		t.Errorf("usage limit = %v, want 5", rec.UsageLimit)
	}
}

func TestIncrementUsageCount(t *testing.T) {
	gdb := openTestDB(t)
	ctx := context.Background()

	gdb.Create(&models.APIKey{Key: "tg_abc", UserID: "u1", UsageCount: 4})

	for i := 0; i < 3; i++ {
		if err := IncrementUsageCount(ctx, gdb, "tg_abc"); err != nil {
			t.Fatalf("increment: %v", err)
		}
	}

	rec, _ := GetAPIKey(ctx, gdb, "tg_abc")
	if rec.UsageCount != 7 {
		t.Errorf("usage count = %d, want 7", rec.UsageCount)
	}
}

func TestContextLogRoundTrip(t *testing.T) {
	gdb := openTestDB(t)
	ctx := context.Background()

	payload, ok, err := LatestContextLog(ctx, gdb, "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok || payload != "" {
		t.Errorf("expected no context, got %q", payload)
	}

	if _, err := InsertContextLog(ctx, gdb, "u1", "sess-1", `"first"`); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := InsertContextLog(ctx, gdb, "u1", "sess-2", `"second"`); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := InsertContextLog(ctx, gdb, "u2", "sess-3", `"other user"`); err != nil {
		t.Fatalf("insert: %v", err)
	}

	payload, ok, err = LatestContextLog(ctx, gdb, "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok || payload != `"second"` {
		t.Errorf("latest = %q ok=%v, want \"second\"", payload, ok)
	}
}

func TestRequestLogs(t *testing.T) {
	gdb := openTestDB(t)
	ctx := context.Background()

	ms := 120
	id, err := InsertRequestLog(ctx, gdb, &models.RequestLog{
		UserID:           "u1",
		RequestPayload:   `{"prompt":"hi"}`,
		ResponsePayload:  `{"response":"hello"}`,
		ProcessingTimeMs: &ms,
		ToolUsed:         "Athena",
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if id == 0 {
		t.Error("expected non-zero row id")
	}

	logs, err := RequestLogsByUser(ctx, gdb, "u1")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(logs) != 1 || logs[0].ToolUsed != "Athena" {
		t.Errorf("logs = %+v", logs)
	}
	if logs[0].ProcessingTimeMs == nil || *logs[0].ProcessingTimeMs != 120 {
		t.Errorf("processing time = %v, want 120", logs[0].ProcessingTimeMs)
	}

	logs, err = RequestLogsByUser(ctx, gdb, "nobody")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(logs) != 0 {
		t.Errorf("expected no logs for unknown user, got %d", len(logs))
	}
}

func TestPurgeRequestLogsBefore(t *testing.T) {
	gdb := openTestDB(t)
	ctx := context.Background()

	old := time.Now().AddDate(0, 0, -40)
	gdb.Create(&models.RequestLog{UserID: "u1", ToolUsed: "Athena", CreatedAt: old})
	gdb.Create(&models.RequestLog{UserID: "u1", ToolUsed: "Moad", CreatedAt: time.Now()})

	removed, err := PurgeRequestLogsBefore(ctx, gdb, time.Now().AddDate(0, 0, -30))
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}

	logs, _ := RequestLogsByUser(ctx, gdb, "u1")
	if len(logs) != 1 || logs[0].ToolUsed != "Moad" {
		t.Errorf("surviving logs = %+v", logs)
	}
}
