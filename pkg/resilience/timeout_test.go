package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTimeouts_Hierarchy(t *testing.T) {
	tc := DefaultTimeouts()

	assert.Greater(t, tc.SweepRun, tc.GatewayCall,
		"a sweep pass must outlast a single gateway call")
	assert.Greater(t, tc.GatewayCall, tc.ReceiptDelivery,
		"gateway calls get more budget than a notification push")

	assert.Equal(t, 30*time.Second, tc.GatewayCall)
	assert.Equal(t, 10*time.Second, tc.ReceiptDelivery)
	assert.Equal(t, 5*time.Minute, tc.SweepRun)
}

func TestTimeoutContexts_CarryDeadline(t *testing.T) {
	tc := DefaultTimeouts()

	tests := []struct {
		name    string
		derive  func(context.Context) (context.Context, context.CancelFunc)
		timeout time.Duration
	}{
		{"gateway", tc.GatewayContext, tc.GatewayCall},
		{"delivery", tc.DeliveryContext, tc.ReceiptDelivery},
		{"sweep", tc.SweepContext, tc.SweepRun},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := tt.derive(context.Background())
			defer cancel()

			deadline, ok := ctx.Deadline()
			require.True(t, ok)
			assert.WithinDuration(t, time.Now().Add(tt.timeout), deadline, 100*time.Millisecond)
		})
	}
}

func TestTimeoutContexts_RespectParentDeadline(t *testing.T) {
	tc := DefaultTimeouts()

	parent, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	child, childCancel := tc.SweepContext(parent)
	defer childCancel()

	parentDeadline, _ := parent.Deadline()
	childDeadline, ok := child.Deadline()
	require.True(t, ok)
	assert.False(t, childDeadline.After(parentDeadline),
		"child must not outlive its parent")
}
