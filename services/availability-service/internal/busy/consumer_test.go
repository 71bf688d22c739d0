package busy

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	mu        sync.Mutex
	msgs      []kafka.Message
	committed []int64
	closed    bool
	done      context.CancelFunc
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.msgs) == 0 {
		r.done()
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	msg := r.msgs[0]
	r.msgs = r.msgs[1:]
	return msg, nil
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error {
	r.closed = true
	return nil
}

type fakeSaver struct {
	failures int
	calls    int
	saved    []Snapshot
}

func (s *fakeSaver) Save(_ context.Context, snap Snapshot) (SaveResult, error) {
	s.calls++
	if s.calls <= s.failures {
		return 0, errors.New("redis down")
	}
	s.saved = append(s.saved, snap)
	return Applied, nil
}

func snapshotMessage(t *testing.T, offset int64, snap Snapshot) kafka.Message {
	t.Helper()
	b, err := json.Marshal(snap)
	require.NoError(t, err)
	return kafka.Message{Topic: DefaultTopic, Offset: offset, Key: []byte(snap.SnapshotID), Value: b}
}

func runConsumer(t *testing.T, saver *fakeSaver, msgs ...kafka.Message) *fakeReader {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	reader := &fakeReader{msgs: msgs, done: cancel}
	c := NewConsumer(slog.New(slog.NewTextHandler(io.Discard, nil)), saver, reader)
	c.backoff = time.Millisecond
	c.Run(ctx)
	return reader
}

func TestConsumerStoresAndCommits(t *testing.T) {
	saver := &fakeSaver{}
	reader := runConsumer(t, saver,
		snapshotMessage(t, 1, Snapshot{SnapshotID: "s1", ProfileID: profileID, FetchedAt: time.Now()}),
		snapshotMessage(t, 2, Snapshot{ProfileID: profileID, FetchedAt: time.Now()}),
	)

	assert.Equal(t, []int64{1, 2}, reader.committed)
	assert.True(t, reader.closed)
	require.Len(t, saver.saved, 2)
	assert.Equal(t, "s1", saver.saved[0].SnapshotID)
	assert.Empty(t, saver.saved[1].SnapshotID)
}

func TestConsumerSkipsPoisonMessages(t *testing.T) {
	saver := &fakeSaver{}
	reader := runConsumer(t, saver,
		kafka.Message{Offset: 1, Value: []byte("{not json")},
		snapshotMessage(t, 2, Snapshot{SnapshotID: "s2", ProfileID: "not-a-uuid"}),
		snapshotMessage(t, 3, Snapshot{SnapshotID: "s3", ProfileID: profileID}),
	)

	assert.Equal(t, []int64{1, 2, 3}, reader.committed)
	require.Len(t, saver.saved, 1)
	assert.Equal(t, "s3", saver.saved[0].SnapshotID)
}

func TestConsumerRetriesSave(t *testing.T) {
	saver := &fakeSaver{failures: 2}
	reader := runConsumer(t, saver, snapshotMessage(t, 7, Snapshot{SnapshotID: "s7", ProfileID: profileID}))

	assert.Equal(t, 3, saver.calls)
	assert.Len(t, saver.saved, 1)
	assert.Equal(t, []int64{7}, reader.committed)
}

func TestConsumerGivesUpAfterRetries(t *testing.T) {
	saver := &fakeSaver{failures: 100}
	reader := runConsumer(t, saver, snapshotMessage(t, 9, Snapshot{SnapshotID: "s9", ProfileID: profileID}))

	assert.Equal(t, 5, saver.calls)
	assert.Empty(t, saver.saved)
	assert.Equal(t, []int64{9}, reader.committed)
}
