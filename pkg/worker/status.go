package worker

import (
	"os"
	"sync"
	"time"

	"github.com/outpost-systems/hivemind/pkg/types"
)

// statusTracker holds the process-wide status singleton described in spec
// §3: start time, request count, and the busy/command state of every
// serving goroutine, guarded by a single mutex held only across the small
// critical section that mutates it (spec §5).
type statusTracker struct {
	mu              sync.Mutex
	startTime       time.Time
	requestsHandled uint64
	threads         map[int]*types.Thread
}

func newStatusTracker() *statusTracker {
	return &statusTracker{
		startTime: time.Now(),
		threads:   make(map[int]*types.Thread),
	}
}

// updateThreadStatus records that goroutine id is now busy (running
// command) or idle, mirroring the original's update_thread_status. It
// increments the handled-request counter only when transitioning to busy.
func (s *statusTracker) updateThreadStatus(id int, busy bool, command string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.threads[id]
	if !ok {
		t = &types.Thread{PID: id}
		s.threads[id] = t
	}
	t.Busy = busy
	t.Command = command
	if busy {
		s.requestsHandled++
	}
}

func (s *statusTracker) snapshot() types.Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	threads := make(map[int]*types.Thread, len(s.threads))
	for id, t := range s.threads {
		cp := *t
		threads[id] = &cp
	}

	return types.Status{
		StartTime:       s.startTime,
		PID:             os.Getpid(),
		RequestsHandled: s.requestsHandled,
		Threads:         threads,
		RunTime:         types.FormatUptime(time.Since(s.startTime)),
	}
}
