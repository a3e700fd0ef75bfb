package runtime

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestKeyedMutex_Serializes_Same_Key(t *testing.T) {
	req := require.New(t)
	locks := NewKeyedMutex()

	var (
		mu      sync.Mutex
		inside  int
		maxSeen int
		wg      sync.WaitGroup
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock("chat-1")
			defer unlock()

			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
		}()
	}
	wg.Wait()

	req.Equal(1, maxSeen)
	req.Zero(locks.Len())
}

func TestKeyedMutex_Different_Keys_Do_Not_Block(t *testing.T) {
	req := require.New(t)
	locks := NewKeyedMutex()

	unlock := locks.Lock("chat-1")
	defer unlock()

	done := make(chan struct{})
	go func() {
		release := locks.Lock("chat-2")
		release()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		req.Fail("lock on another key should not wait")
	}
}
