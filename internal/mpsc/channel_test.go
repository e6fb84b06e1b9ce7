package mpsc

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannel_FIFOSingleProducer(t *testing.T) {
	tx, rx := New[int]()
	defer rx.Close()

	for i := 0; i < 500; i++ {
		require.True(t, tx.Send(i))
	}
	tx.Close()

	for i := 0; i < 500; i++ {
		v, ok := rx.Recv()
		require.True(t, ok)
		assert.Equal(t, i, v, "values must come out in send order")
	}

	_, ok := rx.Recv()
	assert.False(t, ok, "recv after drain with no senders reports closed")
}

func TestChannel_ManyProducersKeepPerProducerOrder(t *testing.T) {
	type item struct {
		producer int
		seq      int
	}

	const producers = 8
	const perProducer = 1000

	tx, rx := New[item]()
	defer rx.Close()

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		clone := tx.Clone()
		wg.Add(1)
		go func(id int, s *Sender[item]) {
			defer wg.Done()
			defer s.Close()
			for i := 0; i < perProducer; i++ {
				s.Send(item{producer: id, seq: i})
			}
		}(p, clone)
	}
	tx.Close() // only the clones keep the channel open now

	last := make([]int, producers)
	for i := range last {
		last[i] = -1
	}

	received := 0
	for {
		v, ok := rx.Recv()
		if !ok {
			break
		}
		assert.Equal(t, last[v.producer]+1, v.seq, "producer %d reordered", v.producer)
		last[v.producer] = v.seq
		received++
	}
	wg.Wait()

	assert.Equal(t, producers*perProducer, received, "no loss, no duplication")
}

func TestChannel_RecvBlocksUntilSend(t *testing.T) {
	tx, rx := New[string]()
	defer tx.Close()
	defer rx.Close()

	got := make(chan string, 1)
	go func() {
		v, _ := rx.Recv()
		got <- v
	}()

	select {
	case <-got:
		t.Fatal("recv returned before anything was sent")
	case <-time.After(50 * time.Millisecond):
	}

	require.True(t, tx.Send("pose"))
	select {
	case v := <-got:
		assert.Equal(t, "pose", v)
	case <-time.After(time.Second):
		t.Fatal("recv was not woken by send")
	}
}

func TestChannel_LastSenderDropWakesReceiver(t *testing.T) {
	tx, rx := New[int]()
	defer rx.Close()
	clone := tx.Clone()

	done := make(chan bool, 1)
	go func() {
		_, ok := rx.Recv()
		done <- ok
	}()

	tx.Close()
	select {
	case <-done:
		t.Fatal("receiver woke while a clone is still alive")
	case <-time.After(50 * time.Millisecond):
	}

	clone.Close()
	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("receiver never observed closure")
	}
}

func TestChannel_ClosedDrainsQueueFirst(t *testing.T) {
	tx, rx := New[int]()
	defer rx.Close()

	tx.Send(1)
	tx.Send(2)
	tx.Close()

	assert.False(t, rx.Drained())
	v, ok := rx.Recv()
	require.True(t, ok)
	assert.Equal(t, 1, v)
	v, ok = rx.Recv()
	require.True(t, ok)
	assert.Equal(t, 2, v)

	assert.True(t, rx.Drained())
	_, ok = rx.Recv()
	assert.False(t, ok)
}

func TestChannel_TryRecv(t *testing.T) {
	t.Run("empty with live sender", func(t *testing.T) {
		tx, rx := New[int]()
		defer tx.Close()
		defer rx.Close()

		_, ok := rx.TryRecv()
		assert.False(t, ok)
	})

	t.Run("empty with no sender does not block", func(t *testing.T) {
		tx, rx := New[int]()
		defer rx.Close()
		tx.Close()

		_, ok := rx.TryRecv()
		assert.False(t, ok)
		assert.True(t, rx.Drained())
	})

	t.Run("returns oldest", func(t *testing.T) {
		tx, rx := New[int]()
		defer tx.Close()
		defer rx.Close()

		tx.Send(7)
		tx.Send(8)
		v, ok := rx.TryRecv()
		require.True(t, ok)
		assert.Equal(t, 7, v)
		assert.Equal(t, 1, rx.Len())
	})
}

func TestChannel_SendAfterReceiverClosed(t *testing.T) {
	tx, rx := New[int]()
	defer tx.Close()

	require.True(t, tx.Send(1))
	rx.Close()

	for i := 0; i < 10; i++ {
		assert.False(t, tx.Send(i), "send must fail once the consumer is gone")
	}
	assert.Equal(t, 0, rx.Len(), "queue must not grow after the consumer is gone")
}

func TestChannel_SenderCloseIsIdempotent(t *testing.T) {
	tx, rx := New[int]()
	defer rx.Close()
	clone := tx.Clone()

	tx.Close()
	tx.Close()
	assert.False(t, tx.Send(1), "closed handle cannot send")

	assert.True(t, clone.Send(2), "double close must not drop the clone's count")
	v, ok := rx.TryRecv()
	require.True(t, ok)
	assert.Equal(t, 2, v)

	clone.Close()
	assert.True(t, rx.Drained())
}

func TestChannel_CloneOfClosedSender(t *testing.T) {
	tx, rx := New[int]()
	defer rx.Close()
	keep := tx.Clone()
	defer keep.Close()

	tx.Close()
	dead := tx.Clone()
	assert.False(t, dead.Send(1))
	dead.Close()

	assert.True(t, keep.Send(1), "closing a dead clone must not affect live handles")
}

func TestChannel_RecvContext(t *testing.T) {
	t.Run("cancel while waiting", func(t *testing.T) {
		tx, rx := New[int]()
		defer tx.Close()
		defer rx.Close()

		ctx, cancel := context.WithCancel(context.Background())
		errCh := make(chan error, 1)
		go func() {
			_, err := rx.RecvContext(ctx)
			errCh <- err
		}()

		time.Sleep(20 * time.Millisecond)
		cancel()

		select {
		case err := <-errCh:
			assert.ErrorIs(t, err, context.Canceled)
		case <-time.After(time.Second):
			t.Fatal("RecvContext ignored cancellation")
		}
	})

	t.Run("closed", func(t *testing.T) {
		tx, rx := New[int]()
		defer rx.Close()
		tx.Close()

		_, err := rx.RecvContext(context.Background())
		assert.ErrorIs(t, err, ErrClosed)
	})

	t.Run("queued value wins over cancelled context", func(t *testing.T) {
		tx, rx := New[int]()
		defer tx.Close()
		defer rx.Close()

		tx.Send(42)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		v, err := rx.RecvContext(ctx)
		require.NoError(t, err)
		assert.Equal(t, 42, v)
	})
}

func TestChannel_CompactionKeepsOrder(t *testing.T) {
	tx, rx := New[int]()
	defer tx.Close()
	defer rx.Close()

	next := 0
	for round := 0; round < 20; round++ {
		for i := 0; i < 100; i++ {
			tx.Send(round*100 + i)
		}
		for i := 0; i < 70; i++ {
			v, ok := rx.TryRecv()
			require.True(t, ok)
			require.Equal(t, next, v)
			next++
		}
	}
	for rx.Len() > 0 {
		v, _ := rx.TryRecv()
		require.Equal(t, next, v)
		next++
	}
	assert.Equal(t, 2000, next)
}
