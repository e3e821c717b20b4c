package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransitionTo(t *testing.T) {
	tests := []struct {
		name    string
		from    OrderStatus
		to      OrderStatus
		wantErr bool
	}{
		{"pending to processing", StatusPending, StatusProcessing, false},
		{"pending to completed", StatusPending, StatusCompleted, false},
		{"pending to failed", StatusPending, StatusFailed, false},
		{"processing to completed", StatusProcessing, StatusCompleted, false},
		{"processing to failed", StatusProcessing, StatusFailed, false},
		{"processing back to pending", StatusProcessing, StatusPending, true},
		{"completed is terminal", StatusCompleted, StatusFailed, true},
		{"failed is terminal", StatusFailed, StatusCompleted, true},
		{"completed to completed", StatusCompleted, StatusCompleted, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := &Order{ID: "o1", Status: tt.from}
			err := o.CanTransitionTo(tt.to)
			if tt.wantErr {
				assert.Error(t, err)
				assert.True(t, IsErrorCode(err, ErrCodeInvalidTransition))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTransitionSources(t *testing.T) {
	// The CAS predicates must mirror the per-order guard exactly.
	assert.Equal(t, []OrderStatus{StatusPending, StatusProcessing}, TransitionSources(StatusCompleted))
	assert.Equal(t, []OrderStatus{StatusPending, StatusProcessing}, TransitionSources(StatusFailed))
	assert.Equal(t, []OrderStatus{StatusPending}, TransitionSources(StatusProcessing))
	assert.Empty(t, TransitionSources(StatusPending))
}

func TestTerminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusProcessing.Terminal())
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusFailed.Terminal())
}

func TestPrepayID(t *testing.T) {
	o := &Order{ID: "o1", Status: StatusPending}
	assert.Empty(t, o.PrepayID())

	o.Metadata = map[string]string{MetaPrepayID: "9825382937292"}
	assert.Equal(t, "9825382937292", o.PrepayID())
}
