package persistence

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/energyadmin/backend/internal/domain/lead"
	"github.com/energyadmin/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// MemoryLeadRepository keeps leads in process memory. Every read and write
// copies the aggregate so callers never share state with the store.
type MemoryLeadRepository struct {
	mu    sync.RWMutex
	leads map[uuid.UUID]*lead.Lead
}

// NewMemoryLeadRepository creates an empty in-memory repository
func NewMemoryLeadRepository() *MemoryLeadRepository {
	return &MemoryLeadRepository{leads: make(map[uuid.UUID]*lead.Lead)}
}

// FindByID finds a lead by its ID
func (r *MemoryLeadRepository) FindByID(ctx context.Context, id uuid.UUID) (*lead.Lead, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.leads[id]
	if !ok {
		return nil, shared.NewNotFoundError("Lead %s not found", id)
	}
	return l.Clone(), nil
}

// FindAll returns one page of matching leads and the total match count
func (r *MemoryLeadRepository) FindAll(ctx context.Context, filter lead.ListFilter) ([]*lead.Lead, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	r.mu.RLock()
	matched := make([]*lead.Lead, 0, len(r.leads))
	for _, l := range r.leads {
		if filter.Matches(l) {
			matched = append(matched, l)
		}
	}
	r.mu.RUnlock()

	sortLeads(matched, filter.OrderBy, filter.OrderDir)
	total := int64(len(matched))

	start := filter.Offset()
	if start > len(matched) {
		start = len(matched)
	}
	end := len(matched)
	if filter.PageSize > 0 && start+filter.PageSize < end {
		end = start + filter.PageSize
	}
	page := make([]*lead.Lead, 0, end-start)
	for _, l := range matched[start:end] {
		page = append(page, l.Clone())
	}
	return page, total, nil
}

// Save creates or replaces a lead
func (r *MemoryLeadRepository) Save(ctx context.Context, l *lead.Lead) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leads[l.ID] = l.Clone()
	return nil
}

// SaveWithLock saves with optimistic locking (version check)
func (r *MemoryLeadRepository) SaveWithLock(ctx context.Context, l *lead.Lead) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.leads[l.ID]
	if !ok {
		return shared.NewNotFoundError("Lead %s not found", l.ID)
	}
	if current.Version != l.Version {
		return shared.NewDomainError(shared.CodeConcurrencyConflict, "The lead has been modified by another request")
	}
	l.IncrementVersion()
	r.leads[l.ID] = l.Clone()
	return nil
}

// Snapshot returns a copy of every lead ordered by creation time
func (r *MemoryLeadRepository) Snapshot(ctx context.Context) ([]*lead.Lead, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*lead.Lead, 0, len(r.leads))
	for _, l := range r.leads {
		out = append(out, l.Clone())
	}
	sortLeads(out, "created_at", "asc")
	return out, nil
}

// Exists reports whether a lead exists
func (r *MemoryLeadRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.leads[id]
	return ok, nil
}

// sortLeads orders leads by a whitelisted column. Ties are broken by id so
// pagination is stable.
func sortLeads(leads []*lead.Lead, orderBy, orderDir string) {
	field := ValidateSortField(orderBy, LeadSortFields, "created_at")
	desc := ValidateSortOrder(orderDir) == "DESC"

	sort.SliceStable(leads, func(i, j int) bool {
		a, b := leads[i], leads[j]
		c := compareLeads(a, b, field)
		if c == 0 {
			c = strings.Compare(a.ID.String(), b.ID.String())
		}
		if desc {
			return c > 0
		}
		return c < 0
	})
}

func compareLeads(a, b *lead.Lead, field string) int {
	switch field {
	case "updated_at":
		return a.UpdatedAt.Compare(b.UpdatedAt)
	case "total_estimated_value":
		return a.TotalEstimatedValue.Cmp(b.TotalEstimatedValue)
	case "last_name":
		return strings.Compare(strings.ToLower(a.Contact.LastName), strings.ToLower(b.Contact.LastName))
	case "status":
		return strings.Compare(string(a.Status.Current), string(b.Status.Current))
	default:
		return a.CreatedAt.Compare(b.CreatedAt)
	}
}
