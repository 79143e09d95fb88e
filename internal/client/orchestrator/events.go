package orchestrator

import "sync"

// State is the lifecycle position of one file transfer.
type State string

const (
	StateQueued       State = "queued"
	StateHashing      State = "hashing"
	StateInitializing State = "initializing"
	StateUploading    State = "uploading"
	StateCompleting   State = "completing"
	StateVerified     State = "verified"

	// StateDuplicate means the server already holds identical content in
	// this case. The transfer stops, but the run as a whole goes on.
	StateDuplicate State = "duplicate"

	StateFailed State = "failed"
)

// Event reports a single state transition of one file.
type Event struct {
	Path       string
	State      State
	EvidenceID string
	SHA256     string
	ExistingID string
	Err        error
}

// publisher fans out transfer events to subscribers. Publishing happens from
// worker goroutines, so callbacks must be safe for concurrent use.
type publisher struct {
	mu   sync.RWMutex
	subs map[int]func(Event)
	next int
}

func (p *publisher) subscribe(fn func(Event)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.subs == nil {
		p.subs = make(map[int]func(Event))
	}
	id := p.next
	p.next++
	p.subs[id] = fn

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.subs, id)
	}
}

func (p *publisher) publish(ev Event) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	for _, fn := range p.subs {
		fn(ev)
	}
}
