package service

import (
	"testing"

	"prova_backend/pkg/monitoring"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func newTestHub() *MonitorHub {
	return &MonitorHub{rooms: make(map[uint]*room)}
}

func newTestClient(role ClientRole, appID uint, submissionID string) *MonitorClient {
	return &MonitorClient{
		Send:          make(chan []byte, 1),
		Role:          role,
		ApplicationID: appID,
		SubmissionID:  submissionID,
	}
}

func gaugeValue() float64 {
	return testutil.ToFloat64(monitoring.MonitorClients)
}

func TestHubGaugeBalancedAcrossProctorReconnects(t *testing.T) {
	hub := newTestHub()
	base := gaugeValue()

	first := newTestClient(RoleProctor, 1, "")
	hub.joinRoom(first)
	assert.Equal(t, base+1, gaugeValue())

	// reconnect displaces the first connection without inflating the count
	second := newTestClient(RoleProctor, 1, "")
	hub.joinRoom(second)
	assert.Equal(t, base+1, gaugeValue())

	_, open := <-first.Send
	assert.False(t, open, "displaced connection should be closed")

	// the displaced connection's read pump still unregisters; its seat is
	// taken, so nothing changes
	assert.False(t, hub.leaveRoom(first))
	assert.Equal(t, base+1, gaugeValue())

	assert.True(t, hub.leaveRoom(second))
	assert.Equal(t, base, gaugeValue())
}

func TestHubGaugeBalancedAcrossStudentReconnects(t *testing.T) {
	hub := newTestHub()
	base := gaugeValue()

	first := newTestClient(RoleStudent, 7, "sub-1")
	hub.joinRoom(first)
	second := newTestClient(RoleStudent, 7, "sub-1")
	hub.joinRoom(second)

	assert.Equal(t, base+1, gaugeValue())
	assert.False(t, hub.leaveRoom(first))
	assert.True(t, hub.leaveRoom(second))
	assert.Equal(t, base, gaugeValue())
}

func TestHubRoomRemovedWhenEmpty(t *testing.T) {
	hub := newTestHub()

	proctor := newTestClient(RoleProctor, 3, "")
	student := newTestClient(RoleStudent, 3, "sub-9")
	hub.joinRoom(proctor)
	hub.joinRoom(student)

	hub.leaveRoom(proctor)
	hub.mu.RLock()
	_, stillThere := hub.rooms[3]
	hub.mu.RUnlock()
	assert.True(t, stillThere, "room survives while a student remains")

	hub.leaveRoom(student)
	hub.mu.RLock()
	_, stillThere = hub.rooms[3]
	hub.mu.RUnlock()
	assert.False(t, stillThere)
}
