package outbox

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestOutbox(t *testing.T) *Outbox {
	t.Helper()
	ob, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = ob.Close() })
	return ob
}

func TestPutAndGet(t *testing.T) {
	ob := openTestOutbox(t)

	require.NoError(t, ob.Put(1, 0, []byte("hello")))

	rec, err := ob.Get(1, 0)
	require.NoError(t, err)
	require.Equal(t, uint64(1), rec.Seq)
	require.Equal(t, uint32(0), rec.Index)
	require.Equal(t, StateNew, rec.State)
	require.Equal(t, []byte("hello"), rec.Payload)
}

func TestScanPendingSkipsAcked(t *testing.T) {
	ob := openTestOutbox(t)

	require.NoError(t, ob.Put(1, 0, []byte("a")))
	require.NoError(t, ob.Put(1, 1, []byte("b")))
	require.NoError(t, ob.Put(2, 0, []byte("c")))

	require.NoError(t, ob.MarkAcked(1, 1))
	require.NoError(t, ob.MarkSent(2, 0))

	var seen []string
	require.NoError(t, ob.ScanPending(func(rec *Record) error {
		seen = append(seen, string(rec.Payload))
		return nil
	}))

	// SENT stays pending until the ack lands; ACKED is done.
	require.Equal(t, []string{"a", "c"}, seen)
}

func TestScanPendingOrderedBySeqThenIndex(t *testing.T) {
	ob := openTestOutbox(t)

	require.NoError(t, ob.Put(10, 1, []byte("10/1")))
	require.NoError(t, ob.Put(2, 0, []byte("2/0")))
	require.NoError(t, ob.Put(10, 0, []byte("10/0")))

	var seen []string
	require.NoError(t, ob.ScanPending(func(rec *Record) error {
		seen = append(seen, string(rec.Payload))
		return nil
	}))
	require.Equal(t, []string{"2/0", "10/0", "10/1"}, seen)
}

func TestStateTransitionsCountRetries(t *testing.T) {
	ob := openTestOutbox(t)

	require.NoError(t, ob.Put(1, 0, []byte("x")))
	require.NoError(t, ob.MarkSent(1, 0))
	require.NoError(t, ob.MarkFailed(1, 0))
	require.NoError(t, ob.MarkSent(1, 0))
	require.NoError(t, ob.MarkAcked(1, 0))

	rec, err := ob.Get(1, 0)
	require.NoError(t, err)
	require.Equal(t, StateAcked, rec.State)
	require.Equal(t, uint32(4), rec.Retries)
	require.NotZero(t, rec.LastAttempt)
}

func TestDeleteAckedUpTo(t *testing.T) {
	ob := openTestOutbox(t)

	require.NoError(t, ob.Put(1, 0, []byte("a")))
	require.NoError(t, ob.Put(2, 0, []byte("b")))
	require.NoError(t, ob.Put(3, 0, []byte("c")))

	require.NoError(t, ob.MarkAcked(1, 0))
	require.NoError(t, ob.MarkAcked(3, 0))

	require.NoError(t, ob.DeleteAckedUpTo(2))

	_, err := ob.Get(1, 0)
	require.Error(t, err)

	// Unacked survives regardless of seq.
	rec, err := ob.Get(2, 0)
	require.NoError(t, err)
	require.Equal(t, StateNew, rec.State)

	// Acked but past the snapshot point survives too.
	rec, err = ob.Get(3, 0)
	require.NoError(t, err)
	require.Equal(t, StateAcked, rec.State)
}
