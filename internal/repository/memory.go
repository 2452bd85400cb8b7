package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/senyabanana/furniture-market/internal/models"
)

// MemoryStore - реализация Store в памяти процесса. Используется при
// STORAGE_BACKEND=memory и в тестах. Повторяет ограничения частичных
// уникальных индексов из миграций.
type MemoryStore struct {
	data *memoryData
	// undo не nil внутри WithinRequestLock и копит откаты изменений.
	undo *[]func()
}

type memoryData struct {
	mu        sync.RWMutex
	seq       int64
	requests  map[string]*memoryRequest
	proposals map[string]*memoryProposal

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

type memoryRequest struct {
	seq int64
	req models.Request
}

type memoryProposal struct {
	seq      int64
	proposal models.Proposal
}

// NewMemoryStore создает пустое хранилище в памяти.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: &memoryData{
		requests:  make(map[string]*memoryRequest),
		proposals: make(map[string]*memoryProposal),
		locks:     make(map[string]*sync.Mutex),
	}}
}

func (s *MemoryStore) WithinRequestLock(ctx context.Context, requestID string, fn func(tx Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.undo != nil {
		// Уже внутри транзакции.
		if _, err := s.GetRequest(ctx, requestID); err != nil {
			return err
		}
		return fn(s)
	}

	lock := s.data.requestLock(requestID)
	lock.Lock()
	defer lock.Unlock()

	if _, err := s.GetRequest(ctx, requestID); err != nil {
		return err
	}

	var undo []func()
	tx := &MemoryStore{data: s.data, undo: &undo}
	if err := fn(tx); err != nil {
		s.data.mu.Lock()
		for i := len(undo) - 1; i >= 0; i-- {
			undo[i]()
		}
		s.data.mu.Unlock()
		return err
	}
	return nil
}

func (d *memoryData) requestLock(requestID string) *sync.Mutex {
	d.locksMu.Lock()
	defer d.locksMu.Unlock()
	lock, ok := d.locks[requestID]
	if !ok {
		lock = &sync.Mutex{}
		d.locks[requestID] = lock
	}
	return lock
}

// record запоминает откат; вызывается под data.mu.
func (s *MemoryStore) record(fn func()) {
	if s.undo != nil {
		*s.undo = append(*s.undo, fn)
	}
}

func (s *MemoryStore) CreateRequest(ctx context.Context, req *models.Request) error {
	s.data.mu.Lock()
	defer s.data.mu.Unlock()

	s.data.seq++
	stored := *req
	stored.Photos = append([]string{}, req.Photos...)
	s.data.requests[req.ID] = &memoryRequest{seq: s.data.seq, req: stored}
	s.record(func() { delete(s.data.requests, req.ID) })
	return nil
}

func (s *MemoryStore) GetRequest(ctx context.Context, requestID string) (*models.Request, error) {
	s.data.mu.RLock()
	defer s.data.mu.RUnlock()

	stored, ok := s.data.requests[requestID]
	if !ok {
		return nil, ErrNotFound
	}
	req := copyRequest(stored.req)
	return &req, nil
}

func (s *MemoryStore) UpdateRequestStatus(ctx context.Context, requestID string, status models.RequestStatus, updatedAt time.Time) error {
	s.data.mu.Lock()
	defer s.data.mu.Unlock()

	stored, ok := s.data.requests[requestID]
	if !ok {
		return ErrNotFound
	}
	prevStatus, prevUpdated := stored.req.Status, stored.req.UpdatedAt
	stored.req.Status, stored.req.UpdatedAt = status, updatedAt
	s.record(func() { stored.req.Status, stored.req.UpdatedAt = prevStatus, prevUpdated })
	return nil
}

func (s *MemoryStore) ListRequestsByOwner(ctx context.Context, ownerID string, limit, offset int) ([]models.Request, error) {
	return s.listRequests(func(req *models.Request) bool {
		return req.OwnerID == ownerID
	}, limit, offset), nil
}

func (s *MemoryStore) ListRequestsByRegion(ctx context.Context, region string, statuses []models.RequestStatus, limit, offset int) ([]models.Request, error) {
	return s.listRequests(func(req *models.Request) bool {
		if !strings.EqualFold(req.Region, region) {
			return false
		}
		for _, status := range statuses {
			if req.Status == status {
				return true
			}
		}
		return false
	}, limit, offset), nil
}

// listRequests возвращает подходящие заявки, новые первыми.
func (s *MemoryStore) listRequests(match func(*models.Request) bool, limit, offset int) []models.Request {
	s.data.mu.RLock()
	var found []*memoryRequest
	for _, stored := range s.data.requests {
		if match(&stored.req) {
			found = append(found, &memoryRequest{seq: stored.seq, req: copyRequest(stored.req)})
		}
	}
	s.data.mu.RUnlock()

	sort.Slice(found, func(i, j int) bool {
		a, b := found[i], found[j]
		if !a.req.CreatedAt.Equal(b.req.CreatedAt) {
			return a.req.CreatedAt.After(b.req.CreatedAt)
		}
		return a.seq > b.seq
	})

	requests := []models.Request{}
	for _, stored := range page(found, limit, offset) {
		requests = append(requests, stored.req)
	}
	return requests
}

func (s *MemoryStore) CreateProposal(ctx context.Context, proposal *models.Proposal) error {
	s.data.mu.Lock()
	defer s.data.mu.Unlock()

	for _, stored := range s.data.proposals {
		p := stored.proposal
		if p.RequestID == proposal.RequestID && p.MasterID == proposal.MasterID && p.Status != models.WithdrawnProposal {
			return ErrDuplicateProposal
		}
	}
	s.data.seq++
	s.data.proposals[proposal.ID] = &memoryProposal{seq: s.data.seq, proposal: *proposal}
	s.record(func() { delete(s.data.proposals, proposal.ID) })
	return nil
}

func (s *MemoryStore) GetProposal(ctx context.Context, proposalID string) (*models.Proposal, error) {
	s.data.mu.RLock()
	defer s.data.mu.RUnlock()

	stored, ok := s.data.proposals[proposalID]
	if !ok {
		return nil, ErrNotFound
	}
	proposal := stored.proposal
	return &proposal, nil
}

func (s *MemoryStore) UpdateProposalStatus(ctx context.Context, proposalID string, status models.ProposalStatus, updatedAt time.Time) error {
	s.data.mu.Lock()
	defer s.data.mu.Unlock()

	stored, ok := s.data.proposals[proposalID]
	if !ok {
		return ErrNotFound
	}
	if status == models.AcceptedProposal {
		for id, other := range s.data.proposals {
			if id != proposalID && other.proposal.RequestID == stored.proposal.RequestID && other.proposal.Status == models.AcceptedProposal {
				return ErrAlreadyAccepted
			}
		}
	}
	prevStatus, prevUpdated := stored.proposal.Status, stored.proposal.UpdatedAt
	stored.proposal.Status, stored.proposal.UpdatedAt = status, updatedAt
	s.record(func() { stored.proposal.Status, stored.proposal.UpdatedAt = prevStatus, prevUpdated })
	return nil
}

func (s *MemoryStore) ListProposalsByRequest(ctx context.Context, requestID string) ([]models.Proposal, error) {
	found := s.findProposals(func(p *models.Proposal) bool { return p.RequestID == requestID })
	sort.Slice(found, func(i, j int) bool {
		a, b := found[i], found[j]
		if !a.proposal.CreatedAt.Equal(b.proposal.CreatedAt) {
			return a.proposal.CreatedAt.Before(b.proposal.CreatedAt)
		}
		return a.seq < b.seq
	})
	return proposalValues(found), nil
}

func (s *MemoryStore) ListProposalsByMaster(ctx context.Context, masterID string, limit, offset int) ([]models.Proposal, error) {
	found := s.findProposals(func(p *models.Proposal) bool { return p.MasterID == masterID })
	sort.Slice(found, func(i, j int) bool {
		a, b := found[i], found[j]
		if !a.proposal.CreatedAt.Equal(b.proposal.CreatedAt) {
			return a.proposal.CreatedAt.After(b.proposal.CreatedAt)
		}
		return a.seq > b.seq
	})
	return proposalValues(page(found, limit, offset)), nil
}

func (s *MemoryStore) FindMasterProposal(ctx context.Context, requestID, masterID string) (*models.Proposal, error) {
	found := s.findProposals(func(p *models.Proposal) bool {
		return p.RequestID == requestID && p.MasterID == masterID
	})
	var best *memoryProposal
	for _, candidate := range found {
		if best == nil || betterMasterProposal(candidate, best) {
			best = candidate
		}
	}
	if best == nil {
		return nil, ErrNotFound
	}
	proposal := best.proposal
	return &proposal, nil
}

// betterMasterProposal: не отозванное важнее отозванного, затем более новое.
func betterMasterProposal(a, b *memoryProposal) bool {
	aWithdrawn := a.proposal.Status == models.WithdrawnProposal
	bWithdrawn := b.proposal.Status == models.WithdrawnProposal
	if aWithdrawn != bWithdrawn {
		return !aWithdrawn
	}
	return a.seq > b.seq
}

func (s *MemoryStore) findProposals(match func(*models.Proposal) bool) []*memoryProposal {
	s.data.mu.RLock()
	defer s.data.mu.RUnlock()

	var found []*memoryProposal
	for _, stored := range s.data.proposals {
		if match(&stored.proposal) {
			snapshot := *stored
			found = append(found, &snapshot)
		}
	}
	return found
}

func proposalValues(found []*memoryProposal) []models.Proposal {
	proposals := []models.Proposal{}
	for _, stored := range found {
		proposals = append(proposals, stored.proposal)
	}
	return proposals
}

func copyRequest(req models.Request) models.Request {
	req.Photos = append([]string{}, req.Photos...)
	return req
}

// page применяет limit/offset; limit <= 0 означает без ограничения.
func page[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return nil
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}
