package rfcache

import (
	"sync"
	"sync/atomic"
	"testing"

	"rubyshd/internal/model"
)

func TestGetOrComputeCachesResult(t *testing.T) {
	c, err := New(8)
	if err != nil {
		t.Fatal(err)
	}

	var calls int32
	key := Key{AbsolutePath: "/srv/a.html", Protocol: model.ProtocolHTTPS}
	compute := func() (Entry, error) {
		atomic.AddInt32(&calls, 1)
		return Entry{Body: []byte("hi")}, nil
	}

	for i := 0; i < 5; i++ {
		entry, err := c.GetOrCompute(key, compute)
		if err != nil {
			t.Fatal(err)
		}
		if string(entry.Body) != "hi" {
			t.Errorf("Body = %q", entry.Body)
		}
	}

	if calls != 1 {
		t.Errorf("compute called %d times, want 1", calls)
	}
}

func TestGetOrComputeCoalescesConcurrentMisses(t *testing.T) {
	c, err := New(8)
	if err != nil {
		t.Fatal(err)
	}

	key := Key{AbsolutePath: "/srv/b.html", Protocol: model.ProtocolGemini}
	var calls int32
	release := make(chan struct{})
	compute := func() (Entry, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return Entry{Body: []byte("slow")}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.GetOrCompute(key, compute); err != nil {
				t.Error(err)
			}
		}()
	}

	close(release)
	wg.Wait()

	if calls != 1 {
		t.Errorf("compute called %d times concurrently, want 1", calls)
	}
}

func TestGetOrComputePropagatesError(t *testing.T) {
	c, err := New(8)
	if err != nil {
		t.Fatal(err)
	}

	key := Key{AbsolutePath: "/srv/missing.html", Protocol: model.ProtocolHTTPS}
	wantErr := model.NewError(model.KindNotFound, nil)
	_, err = c.GetOrCompute(key, func() (Entry, error) {
		return Entry{}, wantErr
	})
	if err != wantErr {
		t.Errorf("err = %v, want %v", err, wantErr)
	}

	// A failed compute isn't cached: the next call retries.
	var calls int32
	_, err = c.GetOrCompute(key, func() (Entry, error) {
		atomic.AddInt32(&calls, 1)
		return Entry{Body: []byte("ok")}, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Errorf("expected retry after cached failure, calls = %d", calls)
	}
}
