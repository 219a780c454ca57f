package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLister struct {
	ids []uint
	err error
}

func (f *fakeLister) ListProductIDs(context.Context) ([]uint, error) {
	return f.ids, f.err
}

type fakeEnqueuer struct {
	enqueued []uint
	failFor  map[uint]bool
}

func (f *fakeEnqueuer) Enqueue(_ context.Context, productID uint) (string, error) {
	if f.failFor[productID] {
		return "", errors.New("broker unavailable")
	}
	f.enqueued = append(f.enqueued, productID)
	return "job-id", nil
}

func TestDispatchAll(t *testing.T) {
	lister := &fakeLister{ids: []uint{1, 2, 3}}
	enqueuer := &fakeEnqueuer{}
	s := New(lister, enqueuer, time.Hour, logrus.New())

	count, err := s.DispatchAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.Equal(t, []uint{1, 2, 3}, enqueuer.enqueued)
}

func TestDispatchAll_ContinuesPastEnqueueFailure(t *testing.T) {
	lister := &fakeLister{ids: []uint{1, 2, 3}}
	enqueuer := &fakeEnqueuer{failFor: map[uint]bool{2: true}}
	s := New(lister, enqueuer, time.Hour, logrus.New())

	count, err := s.DispatchAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, []uint{1, 3}, enqueuer.enqueued)
}

func TestDispatchAll_ListFailure(t *testing.T) {
	lister := &fakeLister{err: errors.New("db down")}
	s := New(lister, &fakeEnqueuer{}, time.Hour, logrus.New())

	count, err := s.DispatchAll(context.Background())
	assert.Error(t, err)
	assert.Zero(t, count)
}

func TestDispatchAll_NoDeduplication(t *testing.T) {
	// Back-to-back batches submit fresh jobs for the same products; the
	// scheduler does not track in-flight work.
	lister := &fakeLister{ids: []uint{7}}
	enqueuer := &fakeEnqueuer{}
	s := New(lister, enqueuer, time.Hour, logrus.New())

	_, err := s.DispatchAll(context.Background())
	require.NoError(t, err)
	_, err = s.DispatchAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []uint{7, 7}, enqueuer.enqueued)
}
