package websocket

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_Publish(t *testing.T) {
	hub := NewHub()
	s := newFakeSubscriber("s", 1)
	hub.Register(s)

	var publisher EventPublisher = hub
	publisher.Publish(1, LoanCreated(testLoan(42)))

	events := s.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "loan.created", events[0].Type)
}

type recordingPublisher struct {
	workspaces []int32
	events     []Event
}

func (r *recordingPublisher) Publish(workspaceID int32, event Event) {
	r.workspaces = append(r.workspaces, workspaceID)
	r.events = append(r.events, event)
}

func TestMultiPublisher_FansOut(t *testing.T) {
	first := &recordingPublisher{}
	second := &recordingPublisher{}
	multi := MultiPublisher{first, nil, second}

	multi.Publish(3, LoanDeleted(9))

	assert.Equal(t, []int32{3}, first.workspaces)
	assert.Equal(t, []int32{3}, second.workspaces)
	assert.Equal(t, "loan.deleted", second.events[0].Type)
}
