package lockedfile

import (
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestMutexExcludes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", ".lock")
	mu := MutexAt(path)

	unlock, err := mu.Lock()
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}

	var (
		wg       sync.WaitGroup
		acquired = make(chan struct{})
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		unlock2, err := mu.Lock()
		if err != nil {
			t.Errorf("second Lock: %v", err)
			return
		}
		close(acquired)
		unlock2()
	}()

	select {
	case <-acquired:
		t.Fatal("second Lock succeeded while the first was held")
	case <-time.After(50 * time.Millisecond):
	}

	unlock()
	wg.Wait()
	select {
	case <-acquired:
	default:
		t.Fatal("second Lock never acquired")
	}
}

func TestMutexAtPanicsOnEmptyPath(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	MutexAt("")
}
