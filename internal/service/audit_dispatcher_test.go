package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-gatepass-api/internal/models"
	"github.com/noah-isme/sma-gatepass-api/pkg/jobs"
)

type channelAuditSink struct {
	received chan *models.AuditLog
}

func (s *channelAuditSink) CreateAuditLog(_ context.Context, entry *models.AuditLog) error {
	s.received <- entry
	return nil
}

func TestAuditDispatcherPersistsAsync(t *testing.T) {
	sink := &channelAuditSink{received: make(chan *models.AuditLog, 1)}
	dispatcher := NewAuditDispatcher(sink, zap.NewNop(), jobs.QueueConfig{Workers: 1})
	dispatcher.Start(context.Background())
	defer dispatcher.Stop()

	passID := "pass-1"
	entry := &models.AuditLog{Action: models.AuditActionPassOut, Resource: "gate_pass", ResourceID: &passID}
	require.NoError(t, dispatcher.CreateAuditLog(context.Background(), entry))

	select {
	case got := <-sink.received:
		require.Equal(t, models.AuditActionPassOut, got.Action)
		require.Equal(t, "pass-1", *got.ResourceID)
	case <-time.After(2 * time.Second):
		t.Fatal("audit entry was not persisted")
	}
}

func TestAuditDispatcherFallsBackWhenStopped(t *testing.T) {
	sink := &channelAuditSink{received: make(chan *models.AuditLog, 1)}
	dispatcher := NewAuditDispatcher(sink, zap.NewNop(), jobs.QueueConfig{Workers: 1})

	entry := &models.AuditLog{Action: models.AuditActionPassIssue, Resource: "gate_pass"}
	require.NoError(t, dispatcher.CreateAuditLog(context.Background(), entry))

	select {
	case got := <-sink.received:
		require.Equal(t, models.AuditActionPassIssue, got.Action)
	default:
		t.Fatal("expected synchronous fallback write")
	}
}
