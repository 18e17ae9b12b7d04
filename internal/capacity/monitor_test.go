package capacity

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/soltixdb/rediswatch/internal/alarm"
	"github.com/soltixdb/rediswatch/internal/balance"
	"github.com/soltixdb/rediswatch/internal/logging"
	"github.com/soltixdb/rediswatch/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	host  string
	port  int
	plan  *models.Plan
	slots []models.SlotRange
}

type fakeProvisioner struct {
	mu       sync.Mutex
	requests []recordedRequest
	err      error
}

func (p *fakeProvisioner) RequestRebalance(ctx context.Context, host string, port int, plan *models.Plan, ownedSlots []models.SlotRange) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.requests = append(p.requests, recordedRequest{host, port, plan, ownedSlots})
	return nil
}

type fakeAlarmer struct {
	messages []string
}

func (a *fakeAlarmer) RaiseAlarm(ctx context.Context, message string, details map[string]interface{}) error {
	a.messages = append(a.messages, message)
	return nil
}

func newTestMonitor(cooldown time.Duration, prov balance.Provisioner, al *fakeAlarmer) (*Monitor, *time.Time) {
	calls := 0
	var alarmer alarm.Alarmer
	if al != nil {
		alarmer = al
	}
	m := NewMonitor(MonitorConfig{Cooldown: cooldown}, planResolver(&calls), prov, alarmer, logging.NewNop())
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return clock }
	return m, &clock
}

func TestMonitor_Check(t *testing.T) {
	prov := &fakeProvisioner{}
	al := &fakeAlarmer{}
	m, _ := newTestMonitor(0, prov, al)

	sent, err := m.Check(context.Background(), "10.0.0.1:7000", pressured(900, 1000))
	require.NoError(t, err)
	assert.True(t, sent)

	require.Len(t, prov.requests, 1)
	assert.Equal(t, "10.0.0.1", prov.requests[0].host)
	assert.Equal(t, 7000, prov.requests[0].port)
	assert.Equal(t, []models.SlotRange{{Start: 0, End: 0}}, prov.requests[0].slots)
	assert.Equal(t, []string{"Attempt to deploy node for 10.0.0.1:7000 due to memory drained"}, al.messages)
}

func TestMonitor_NoCooldownRepeats(t *testing.T) {
	prov := &fakeProvisioner{}
	m, _ := newTestMonitor(0, prov, nil)

	for i := 0; i < 3; i++ {
		_, err := m.Check(context.Background(), "10.0.0.1:7000", pressured(990, 1000))
		require.NoError(t, err)
	}
	assert.Len(t, prov.requests, 3)
}

func TestMonitor_Cooldown(t *testing.T) {
	prov := &fakeProvisioner{}
	m, clock := newTestMonitor(10*time.Minute, prov, nil)
	ctx := context.Background()

	sent, err := m.Check(ctx, "10.0.0.1:7000", pressured(990, 1000))
	require.NoError(t, err)
	assert.True(t, sent)

	*clock = clock.Add(5 * time.Minute)
	sent, err = m.Check(ctx, "10.0.0.1:7000", pressured(990, 1000))
	require.NoError(t, err)
	assert.False(t, sent)

	// Other addresses are not affected
	sent, err = m.Check(ctx, "10.0.0.2:7000", pressured(990, 1000))
	require.NoError(t, err)
	assert.True(t, sent)

	*clock = clock.Add(6 * time.Minute)
	sent, err = m.Check(ctx, "10.0.0.1:7000", pressured(990, 1000))
	require.NoError(t, err)
	assert.True(t, sent)

	assert.Len(t, prov.requests, 3)
}

func TestMonitor_ForgetClearsCooldown(t *testing.T) {
	prov := &fakeProvisioner{}
	m, _ := newTestMonitor(time.Hour, prov, nil)
	ctx := context.Background()

	_, err := m.Check(ctx, "10.0.0.1:7000", pressured(990, 1000))
	require.NoError(t, err)
	m.Forget("10.0.0.1:7000")
	sent, err := m.Check(ctx, "10.0.0.1:7000", pressured(990, 1000))
	require.NoError(t, err)
	assert.True(t, sent)
}

func TestMonitor_ProvisionerErrorDoesNotStartCooldown(t *testing.T) {
	prov := &fakeProvisioner{err: errors.New("queue down")}
	m, _ := newTestMonitor(time.Hour, prov, nil)
	ctx := context.Background()

	sent, err := m.Check(ctx, "10.0.0.1:7000", pressured(990, 1000))
	assert.Error(t, err)
	assert.False(t, sent)

	prov.err = nil
	sent, err = m.Check(ctx, "10.0.0.1:7000", pressured(990, 1000))
	require.NoError(t, err)
	assert.True(t, sent)
}

func TestMonitor_NotUnderPressure(t *testing.T) {
	prov := &fakeProvisioner{}
	m, _ := newTestMonitor(0, prov, nil)

	sent, err := m.Check(context.Background(), "10.0.0.1:7000", pressured(899, 1000))
	require.NoError(t, err)
	assert.False(t, sent)
	assert.Empty(t, prov.requests)
}
