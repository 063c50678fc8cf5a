package httpclient

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/clerapp/platform/pkg/common/logger"
	"github.com/stretchr/testify/assert"
)

func TestRetryStopsOnSuccess(t *testing.T) {
	logger.Silence()
	calls := 0
	err := Retry(context.Background(), "test", 5, time.Millisecond, func() error {
		calls++
		if calls < 3 {
			return errors.New("not yet")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryReturnsLastError(t *testing.T) {
	logger.Silence()
	calls := 0
	err := Retry(context.Background(), "test", 2, time.Millisecond, func() error {
		calls++
		return errors.New("down")
	})
	assert.EqualError(t, err, "down")
	assert.Equal(t, 2, calls)
}

func TestRetryHonoursContext(t *testing.T) {
	logger.Silence()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Retry(ctx, "test", 3, time.Second, func() error { return errors.New("down") })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewSetsTimeout(t *testing.T) {
	assert.Equal(t, 3*time.Second, New(3*time.Second).Timeout)
}
