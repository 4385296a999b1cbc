package repository

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roomrent-dashboard/internal/domain"
)

func TestSubscription_CancelWaitsForDelivery(t *testing.T) {
	var delivered, failed atomic.Int32
	entered := make(chan struct{})
	release := make(chan struct{})

	sub, ctx := NewSubscription(context.Background(),
		func([]domain.Room) {
			if delivered.Add(1) == 1 {
				close(entered)
				<-release
			}
		},
		func(error) { failed.Add(1) },
	)

	go sub.Deliver([]domain.Room{{ID: "r1", Name: "101"}})
	<-entered

	cancelled := make(chan struct{})
	go func() {
		sub.Cancel()
		close(cancelled)
	}()

	select {
	case <-cancelled:
		t.Fatal("Cancel returned while a snapshot was being delivered")
	case <-time.After(50 * time.Millisecond):
	}
	require.Error(t, ctx.Err())

	close(release)
	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("Cancel did not return after the delivery finished")
	}

	sub.Deliver(nil)
	sub.Fail(errors.New("late"))
	assert.Equal(t, int32(1), delivered.Load())
	assert.Equal(t, int32(0), failed.Load())
}

func TestSubscription_Finish(t *testing.T) {
	sub, ctx := NewSubscription(context.Background(), func([]domain.Room) {}, nil)

	sub.Fail(errors.New("ignored without onError"))
	sub.Finish()

	select {
	case <-sub.Done():
	default:
		t.Fatal("Done not closed after Finish")
	}
	assert.Error(t, ctx.Err())

	// cancel after the listener is gone is a no-op
	sub.CancelFunc()()
}
