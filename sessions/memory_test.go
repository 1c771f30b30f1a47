package sessions

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestMemoryGetUnknownIsInitial(t *testing.T) {
	m := NewMemory()
	st, err := m.Get(context.Background(), "34600000001")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if st.Step != StepInit || len(st.Results) != 0 || st.CurrentListing != "" {
		t.Errorf("Get(unknown) = %+v; want initial state", st)
	}
}

func TestMemoryPutGetClear(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	now := time.Date(2030, 5, 1, 10, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	st := Initial()
	st.Step = StepDetailShown
	st.SetResults([]string{"REF-1", "REF-2"})
	st.CurrentListing = "REF-2"
	if err := m.Put(ctx, "u1", st); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, _ := m.Get(ctx, "u1")
	if got.Step != StepDetailShown || got.CurrentListing != "REF-2" || len(got.Results) != 2 {
		t.Errorf("Get = %+v", got)
	}
	if !got.LastActivity.Equal(now) {
		t.Errorf("LastActivity = %v; want %v", got.LastActivity, now)
	}

	// the caller's copy must not alias the stored slice
	got.Results[0] = "MUTATED"
	again, _ := m.Get(ctx, "u1")
	if again.Results[0] != "REF-1" {
		t.Errorf("stored results mutated through Get copy: %v", again.Results)
	}

	if err := m.Clear(ctx, "u1"); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if got, _ := m.Get(ctx, "u1"); got.Step != StepInit {
		t.Errorf("after Clear step = %s; want %s", got.Step, StepInit)
	}
}

func TestMemorySweep(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	base := time.Date(2030, 5, 1, 10, 0, 0, 0, time.UTC)

	m.now = func() time.Time { return base }
	m.Put(ctx, "old", State{Step: StepMenu})
	m.now = func() time.Time { return base.Add(50 * time.Minute) }
	m.Put(ctx, "fresh", State{Step: StepMenu})

	m.now = func() time.Time { return base.Add(70 * time.Minute) }
	n, err := m.Sweep(ctx, time.Hour)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if n != 1 {
		t.Errorf("Sweep removed %d; want 1", n)
	}
	if m.Len() != 1 {
		t.Errorf("Len = %d; want 1", m.Len())
	}
	if st, _ := m.Get(ctx, "fresh"); st.Step != StepMenu {
		t.Errorf("fresh session lost: %+v", st)
	}
}

func TestSweeperRunOnce(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	base := time.Date(2030, 5, 1, 10, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return base }
	m.Put(ctx, "a", State{Step: StepMenu})
	m.Put(ctx, "b", State{Step: StepSearching})
	m.now = func() time.Time { return base.Add(2 * time.Hour) }

	s := NewSweeper(m, time.Hour, time.Minute)
	n, err := s.RunOnce(ctx)
	if err != nil || n != 2 {
		t.Errorf("RunOnce = %d, %v; want 2, nil", n, err)
	}
}

func TestSetResultsCaps(t *testing.T) {
	var st State
	refs := make([]string, 15)
	for i := range refs {
		refs[i] = "R"
	}
	st.SetResults(refs)
	if len(st.Results) != MaxResults {
		t.Errorf("len(Results) = %d; want %d", len(st.Results), MaxResults)
	}
	st.CurrentListing = "X"
	st.ClientName = "Jane"
	st.ResetTransient()
	if st.Results != nil || st.CurrentListing != "" || st.ClientName != "" {
		t.Errorf("ResetTransient left %+v", st)
	}
}

func TestLockerSerializesSameUser(t *testing.T) {
	l := NewLocker()
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		inside int
		peak   int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := l.Lock("same")
			mu.Lock()
			inside++
			if inside > peak {
				peak = inside
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			inside--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()
	if peak != 1 {
		t.Errorf("peak concurrent holders = %d; want 1", peak)
	}
	if l.size() != 0 {
		t.Errorf("locker kept %d entries after release", l.size())
	}
}

func TestLockerDistinctUsersDoNotBlock(t *testing.T) {
	l := NewLocker()
	unlockA := l.Lock("a")
	done := make(chan struct{})
	go func() {
		unlock := l.Lock("b")
		unlock()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on b blocked while a was held")
	}
	unlockA()
}

func TestRedisCodecRoundTrip(t *testing.T) {
	st := State{Step: StepVisitPendingDate, CurrentListing: "REF-3", ClientName: "Jane Doe"}
	raw, err := encodeState(st)
	if err != nil {
		t.Fatalf("encodeState: %v", err)
	}
	got, err := decodeState(raw)
	if err != nil {
		t.Fatalf("decodeState: %v", err)
	}
	if got.Step != st.Step || got.CurrentListing != st.CurrentListing || got.ClientName != st.ClientName {
		t.Errorf("decodeState = %+v; want %+v", got, st)
	}
	if _, err := decodeState([]byte("not snappy")); err == nil {
		t.Error("decodeState(garbage) = nil error")
	}
}
