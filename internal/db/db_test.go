package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"

	"github.com/safin-krmavi/Bulltrek/internal/config"
)

func TestOpenRequiresDSN(t *testing.T) {
	if _, err := Open(config.DBConfig{DSN: "  "}, nil); !errors.Is(err, ErrNoDSN) {
		t.Fatalf("err=%v want=%v", err, ErrNoDSN)
	}
}

func TestNilDBHelpers(t *testing.T) {
	if err := Close(nil); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := Ping(context.Background(), nil); err != nil {
		t.Fatalf("ping: %v", err)
	}
	if err := SetTimezone(nil, "UTC"); err != nil {
		t.Fatalf("tz: %v", err)
	}
	if err := AutoMigrate(nil); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func TestQuoteLiteral(t *testing.T) {
	if got := quoteLiteral("Asia/Kolkata"); got != "'Asia/Kolkata'" {
		t.Fatalf("got=%s", got)
	}
	if got := quoteLiteral("x'; DROP"); got != "'x''; DROP'" {
		t.Fatalf("got=%s", got)
	}
}

func TestGormLoggerTrace(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := newGormLogger(zap.New(core))
	fc := func() (string, int64) { return "SELECT 1", 1 }

	l.Trace(context.Background(), time.Now(), fc, nil)
	if logs.Len() != 0 {
		t.Fatalf("fast query logged at warn level: %v", logs.All())
	}
	l.Trace(context.Background(), time.Now().Add(-time.Second), fc, nil)
	l.Trace(context.Background(), time.Now(), fc, errors.New("boom"))
	if logs.Len() != 2 {
		t.Fatalf("logs=%d want=2", logs.Len())
	}

	l.LogMode(gormlogger.Info).Trace(context.Background(), time.Now(), fc, nil)
	if logs.Len() != 3 || logs.All()[2].Message != "query" {
		t.Fatalf("info mode logs=%v", logs.All())
	}
	l.LogMode(gormlogger.Silent).Trace(context.Background(), time.Now(), fc, errors.New("boom"))
	if logs.Len() != 3 {
		t.Fatalf("silent mode logged")
	}
}
