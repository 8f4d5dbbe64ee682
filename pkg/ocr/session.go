package ocr

import "sync"

type State string

const (
	StateIdle     State = "idle"
	StateScanning State = "scanning"
	StateDone     State = "done"
	StateFailed   State = "failed"
)

// Status is the externally visible state of a key's latest scan.
type Status struct {
	Generation uint64  `json:"generation"`
	State      State   `json:"state"`
	Pass       Profile `json:"pass,omitempty"`
	Progress   int     `json:"progress"`
}

// Sessions tracks the latest scan per key (usually a user). Beginning a scan
// bumps the key's generation; tickets from older generations can no longer
// change the status and report themselves as cancelled.
type Sessions struct {
	mu sync.Mutex
	m  map[string]*Status
}

func NewSessions() *Sessions {
	return &Sessions{m: make(map[string]*Status)}
}

// Begin supersedes any in-flight scan for key and returns its ticket.
func (s *Sessions) Begin(key string) *Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.m[key]
	if !ok {
		st = &Status{}
		s.m[key] = st
	}
	st.Generation++
	st.State = StateScanning
	st.Pass = ""
	st.Progress = 0
	return &Ticket{s: s, key: key, gen: st.Generation}
}

func (s *Sessions) Status(key string) Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.m[key]; ok {
		return *st
	}
	return Status{State: StateIdle}
}

// Ticket is one scan's handle on its session.
type Ticket struct {
	s   *Sessions
	key string
	gen uint64
}

func (t *Ticket) Generation() uint64 { return t.gen }

// Current reports whether no newer scan has begun for the same key.
func (t *Ticket) Current() bool {
	return t.update(func(*Status) {})
}

func (t *Ticket) Cancelled() bool { return !t.Current() }

func (t *Ticket) Report(percent int) {
	t.update(func(st *Status) { st.Progress = percent })
}

func (t *Ticket) EnterPass(p Profile) {
	t.update(func(st *Status) { st.Pass = p })
}

// Finish records the final state. It returns false if the ticket was
// superseded, in which case nothing is recorded.
func (t *Ticket) Finish(err error) bool {
	return t.update(func(st *Status) {
		if err != nil {
			st.State = StateFailed
			return
		}
		st.State = StateDone
		st.Progress = 100
	})
}

func (t *Ticket) update(fn func(*Status)) bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	st, ok := t.s.m[t.key]
	if !ok || st.Generation != t.gen {
		return false
	}
	fn(st)
	return true
}
