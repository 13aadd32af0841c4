package search

import (
	"context"
	"errors"
	"sync"

	"brokenweave/internal/model"
	"brokenweave/pkg/metrics"
)

// ErrStale is returned by Submit when a newer submission superseded this one.
var ErrStale = errors.New("search superseded by a newer request")

type State string

const (
	StateIdle      State = "idle"
	StateSearching State = "searching"
)

// RunFunc executes one search against the backend.
type RunFunc func(ctx context.Context, c Criteria) ([]model.MissingPerson, error)

// Snapshot is the page as the user sees it.
type Snapshot struct {
	State    State                 `json:"state"`
	Seq      uint64                `json:"seq"`
	Criteria Criteria              `json:"criteria"`
	Records  []model.MissingPerson `json:"records"`
	Error    string                `json:"error,omitempty"`
}

// Page holds the result set of one user's search page. Every submission gets
// a sequence number; only the response to the latest submission is applied.
type Page struct {
	mu       sync.Mutex
	latest   uint64
	applied  uint64
	criteria Criteria
	records  []model.MissingPerson
	err      error
}

func NewPage() *Page {
	return &Page{records: []model.MissingPerson{}}
}

// Begin reserves the next sequence number and moves the page to Searching.
func (p *Page) Begin() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.latest++
	return p.latest
}

// Complete applies the outcome of submission seq. A failed search keeps the
// previous records and sets the error. Outcomes of superseded submissions
// are dropped and ErrStale is returned.
func (p *Page) Complete(seq uint64, c Criteria, records []model.MissingPerson, err error) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if seq < p.latest {
		metrics.IncrementSearchStale()
		return ErrStale
	}

	p.applied = seq
	if err != nil {
		p.err = err
		return err
	}
	if records == nil {
		records = []model.MissingPerson{}
	}
	p.criteria = c
	p.records = records
	p.err = nil
	return nil
}

// Submit runs c through run with sequencing.
func (p *Page) Submit(ctx context.Context, c Criteria, run RunFunc) (Snapshot, error) {
	seq := p.Begin()
	records, err := run(ctx, c)
	if err := p.Complete(seq, c, records, err); err != nil {
		return p.Snapshot(), err
	}
	return p.Snapshot(), nil
}

func (p *Page) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	state := StateIdle
	if p.applied < p.latest {
		state = StateSearching
	}
	s := Snapshot{
		State:    state,
		Seq:      p.applied,
		Criteria: p.criteria,
		Records:  append([]model.MissingPerson{}, p.records...),
	}
	if p.err != nil {
		s.Error = p.err.Error()
	}
	return s
}

// Pages keeps one Page per session.
type Pages struct {
	mu    sync.Mutex
	pages map[string]*Page
}

func NewPages() *Pages {
	return &Pages{pages: make(map[string]*Page)}
}

func (ps *Pages) Get(sessionID string) *Page {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	p, ok := ps.pages[sessionID]
	if !ok {
		p = NewPage()
		ps.pages[sessionID] = p
	}
	return p
}

func (ps *Pages) Drop(sessionID string) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	delete(ps.pages, sessionID)
}
