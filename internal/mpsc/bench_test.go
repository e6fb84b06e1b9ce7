package mpsc

import (
	"sync"
	"testing"
)

func BenchmarkSendRecv(b *testing.B) {
	tx, rx := New[int]()
	defer rx.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		tx.Send(i)
		rx.Recv()
	}
}

func BenchmarkFourProducers(b *testing.B) {
	tx, rx := New[int]()
	defer rx.Close()

	const producers = 4
	var wg sync.WaitGroup
	per := b.N / producers
	b.ResetTimer()
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(s *Sender[int]) {
			defer wg.Done()
			defer s.Close()
			for i := 0; i < per; i++ {
				s.Send(i)
			}
		}(tx.Clone())
	}
	tx.Close()

	received := 0
	for {
		if _, ok := rx.Recv(); !ok {
			break
		}
		received++
	}
	wg.Wait()
	if received != per*producers {
		b.Fatalf("received %d, want %d", received, per*producers)
	}
}
