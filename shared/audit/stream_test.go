package audit

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gmaiocc/itic-website-sub000/shared/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu      sync.Mutex
	streams []string
	records []map[string]interface{}
	err     error
}

func (p *recordingPublisher) PublishAuditEvent(_ context.Context, stream string, data map[string]interface{}) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.streams = append(p.streams, stream)
	p.records = append(p.records, data)
	return "1-0", p.err
}

func TestStreamAuditor_PublishesFlatRecord(t *testing.T) {
	pub := &recordingPublisher{}
	auditor := NewStreamAuditor(pub, "audit-events")
	require.True(t, auditor.IsEnabled())

	event := NewEvent(EventTypeUserManagement, ActionCreate, StatusSuccess, ActorTypeAdmin, "admin-1",
		TargetTypeUser, "user-9", map[string]interface{}{"role": "member"})
	auditor.LogEvent(context.Background(), event)
	require.NoError(t, auditor.Wait(context.Background()))

	require.Len(t, pub.records, 1)
	assert.Equal(t, "audit-events", pub.streams[0])
	record := pub.records[0]
	assert.Equal(t, "USER_MANAGEMENT", record["eventType"])
	assert.Equal(t, "user-9", record["targetId"])
	assert.JSONEq(t, `{"role":"member"}`, record["additionalMetadata"].(string))
}

func TestStreamAuditor_PublishErrorIsSwallowed(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("READONLY")}
	auditor := NewStreamAuditor(pub, "audit-events")

	assert.NotPanics(t, func() {
		auditor.LogEvent(context.Background(), NewEvent(EventTypeWhitelist, ActionDelete, StatusSuccess, ActorTypeAdmin, "a", TargetTypeWhitelistEntry, "", nil))
		require.NoError(t, auditor.Wait(context.Background()))
	})
}

func TestStreamAuditor_Disabled(t *testing.T) {
	auditor := NewStreamAuditor(nil, "audit-events")
	assert.False(t, auditor.IsEnabled())
	auditor.LogEvent(context.Background(), &AuditLogRequest{})
	assert.NoError(t, auditor.Wait(context.Background()))

	var _ Auditor = NoopAuditor{}
}

func TestStreamAuditor_WithRedis(t *testing.T) {
	server := miniredis.RunT(t)
	ctx := context.Background()

	client, err := redis.NewClient(ctx, redis.Config{Addr: server.Addr()})
	require.NoError(t, err)
	defer client.Close()

	auditor := NewStreamAuditor(client, "audit-events")
	auditor.LogEvent(ctx, NewEvent(EventTypeContent, ActionCreate, StatusSuccess, ActorTypeDepartmentHead, "head-1", TargetTypeReport, "r-1", nil))
	require.NoError(t, auditor.Wait(ctx))

	length, err := client.GetStreamLength(ctx, "audit-events")
	require.NoError(t, err)
	assert.Equal(t, int64(1), length)
}
