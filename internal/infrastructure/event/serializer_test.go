package event

import (
	"testing"

	"github.com/paintworks/backend/internal/domain/production"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductionEventSerializer_RegistersBatchEvents(t *testing.T) {
	s := NewProductionEventSerializer()
	assert.Equal(t, []string{
		production.EventTypeBatchCancelled,
		production.EventTypeBatchCompleted,
		production.EventTypeBatchScheduled,
		production.EventTypeBatchStarted,
	}, s.RegisteredTypes())
}

func TestEventSerializer_RoundTrip(t *testing.T) {
	s := NewProductionEventSerializer()
	evt := newStartedEvent()

	data, err := s.Serialize(evt)
	require.NoError(t, err)

	decoded, err := s.Deserialize(production.EventTypeBatchStarted, data)
	require.NoError(t, err)

	started, ok := decoded.(*production.BatchStartedEvent)
	require.True(t, ok)
	assert.Equal(t, evt.EventID(), started.EventID())
	assert.Equal(t, evt.AggregateID(), started.AggregateID())
	assert.Equal(t, evt.BatchNumber, started.BatchNumber)
	assert.Equal(t, evt.OrderIDs, started.OrderIDs)
	assert.Equal(t, production.BatchStatusInProgress, started.Transition().NewStatus)
}

func TestEventSerializer_Deserialize_Errors(t *testing.T) {
	s := NewEventSerializer()
	_, err := s.Deserialize("unknown", []byte(`{}`))
	assert.ErrorContains(t, err, "unknown event type")

	s.Register("test", &testEvent{})
	assert.True(t, s.IsRegistered("test"))
	_, err = s.Deserialize("test", []byte(`{not json`))
	assert.ErrorContains(t, err, "failed to unmarshal")
}
