package session

import (
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreGetOrCreate(t *testing.T) {
	st := NewStore(10, 10)

	first := st.GetOrCreate("user-1")
	require.NotNil(t, first)
	assert.Equal(t, "user-1", first.UserID())

	second := st.GetOrCreate("user-1")
	assert.Same(t, first, second, "same user must get the same session")

	other := st.GetOrCreate("user-2")
	assert.NotSame(t, first, other)
	assert.Equal(t, 2, st.Len())
}

func TestStoreHistoryCapacity(t *testing.T) {
	st := NewStore(4, 10)

	for i := 0; i < 20; i++ {
		st.RecordTurn("user-1", "user", strconv.Itoa(i))
	}

	snap := st.Snapshot("user-1")
	require.Len(t, snap.Turns, 4)

	// FIFO eviction: survivors are the most recent entries in order.
	for i, turn := range snap.Turns {
		assert.Equal(t, strconv.Itoa(16+i), turn.Text)
	}
}

func TestStoreContentCapacity(t *testing.T) {
	st := NewStore(10, 3)

	for i := 0; i < 10; i++ {
		st.RecordContent("user-1", "photo", strconv.Itoa(i), "ref")
	}

	snap := st.Snapshot("user-1")
	require.Len(t, snap.Content, 3)
	assert.Equal(t, "7", snap.Content[0].Summary)
	assert.Equal(t, "9", snap.Content[2].Summary)
}

func TestStoreSnapshotUnknownUser(t *testing.T) {
	st := NewStore(10, 10)

	snap := st.Snapshot("nobody")

	assert.Equal(t, "nobody", snap.UserID)
	assert.Empty(t, snap.Turns)
	assert.Empty(t, snap.Content)
	assert.Equal(t, 0, st.Len(), "snapshot must not create a session")
}

func TestStoreSnapshotIsolation(t *testing.T) {
	st := NewStore(10, 10)
	st.RecordTurn("user-1", "user", "hello")

	snap := st.Snapshot("user-1")
	snap.Turns[0].Text = "tampered"

	fresh := st.Snapshot("user-1")
	assert.Equal(t, "hello", fresh.Turns[0].Text)
}

func TestStoreTouchUpdatesLastActive(t *testing.T) {
	st := NewStore(10, 10)

	sess := st.GetOrCreate("user-1")
	before := sess.LastActive()

	time.Sleep(5 * time.Millisecond)
	st.Touch("user-1")

	assert.True(t, sess.LastActive().After(before))
}

func TestStoreRemove(t *testing.T) {
	st := NewStore(10, 10)
	st.GetOrCreate("user-1")

	assert.True(t, st.Remove("user-1"))
	assert.False(t, st.Remove("user-1"))
	assert.Equal(t, 0, st.Len())
}

func TestStoreActivityCounters(t *testing.T) {
	st := NewStore(10, 10)

	sess := st.GetOrCreate("user-1")
	sess.RecordSubmission("photo")
	sess.RecordSubmission("photo")
	sess.RecordSubmission("video")

	activity := sess.ActivitySnapshot()
	assert.Equal(t, 2, activity.Submissions["photo"])
	assert.Equal(t, 1, activity.Submissions["video"])
	assert.False(t, activity.FirstSeen.IsZero())
}

func TestStoreStats(t *testing.T) {
	st := NewStore(10, 10)
	st.RecordTurn("a", "user", "hi")
	st.RecordTurn("a", "model", "hello")
	st.RecordContent("b", "photo", "a cat", "ref-1")

	stats := st.Stats()
	assert.Equal(t, 2, stats["sessions"])
	assert.Equal(t, 2, stats["turns"])
	assert.Equal(t, 1, stats["content_entries"])
}

func TestStoreConcurrentUsers(t *testing.T) {
	st := NewStore(8, 8)

	var wg sync.WaitGroup
	for u := 0; u < 10; u++ {
		userID := fmt.Sprintf("user-%d", u)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				st.RecordTurn(userID, "user", strconv.Itoa(i))
				st.RecordContent(userID, "photo", strconv.Itoa(i), "ref")
				st.Touch(userID)
				_ = st.Snapshot(userID)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, st.Len())
	for u := 0; u < 10; u++ {
		snap := st.Snapshot(fmt.Sprintf("user-%d", u))
		assert.Len(t, snap.Turns, 8)
		assert.Len(t, snap.Content, 8)
	}
}
