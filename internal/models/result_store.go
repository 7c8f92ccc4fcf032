package models

import (
	"sync"
)

// ResultStore accumulates scraped businesses for one job. Readers always
// receive copies, so a snapshot taken while a pipeline stage is mutating
// records never observes a half-written entry. Once sealed the store
// rejects further appends; in-place enrichment of existing records stays
// allowed so later stages can attach emails and templates.
type ResultStore struct {
	mu     sync.RWMutex
	items  []Business
	sealed bool
}

// NewResultStore returns an empty, unsealed store
func NewResultStore() *ResultStore {
	return &ResultStore{}
}

// Append adds a business to the store. Appends after Seal are dropped.
func (s *ResultStore) Append(b Business) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sealed {
		return
	}
	s.items = append(s.items, b.Clone())
}

// Seal freezes the membership of the store
func (s *ResultStore) Seal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sealed = true
}

// Len returns the number of stored businesses
func (s *ResultStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// At returns a copy of the business at index i
func (s *ResultStore) At(i int) Business {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.items[i].Clone()
}

// SetEmails attaches discovered emails to the business at index i
func (s *ResultStore) SetEmails(i int, emails []string, primary string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.items) {
		return
	}
	copied := make([]string, len(emails))
	copy(copied, emails)
	s.items[i].Emails = copied
	s.items[i].PrimaryEmail = primary
}

// SetTemplate attaches a generated outreach template to the business at index i
func (s *ResultStore) SetTemplate(i int, template string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.items) {
		return
	}
	s.items[i].EmailTemplate = template
}

// Snapshot returns a deep copy of all stored businesses
func (s *ResultStore) Snapshot() []Business {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Business, len(s.items))
	for i := range s.items {
		out[i] = s.items[i].Clone()
	}
	return out
}
