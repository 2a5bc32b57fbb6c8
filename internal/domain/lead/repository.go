package lead

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/energyadmin/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// ListFilter narrows a lead listing. Zero values mean "no constraint".
type ListFilter struct {
	shared.Filter
	Statuses      []Status
	SourceType    SourceType
	Priority      Priority
	SalespersonID string
	Tag           string
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
}

// Repository defines the interface for lead persistence.
// Implementations hand out copies: mutating a returned lead has no effect
// until it is saved again.
type Repository interface {
	// FindByID finds a lead by ID, returns NOT_FOUND for unknown ids
	FindByID(ctx context.Context, id uuid.UUID) (*Lead, error)

	// FindAll returns one page of leads matching the filter plus the total count
	FindAll(ctx context.Context, filter ListFilter) ([]*Lead, int64, error)

	// Save creates a lead or updates an existing one
	Save(ctx context.Context, lead *Lead) error

	// SaveWithLock saves with optimistic locking (version check).
	// The version is incremented on success.
	SaveWithLock(ctx context.Context, lead *Lead) error

	// Snapshot returns a consistent copy of every lead
	Snapshot(ctx context.Context) ([]*Lead, error)

	// Exists reports whether a lead with the given id exists
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

// Matches reports whether l satisfies every constraint of the filter
func (f ListFilter) Matches(l *Lead) bool {
	if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, l.Status.Current) {
		return false
	}
	if f.SourceType != "" && l.Source.Type != f.SourceType {
		return false
	}
	if f.Priority != "" && l.Priority != f.Priority {
		return false
	}
	if f.SalespersonID != "" && l.Commission.SalespersonID != f.SalespersonID {
		return false
	}
	if f.Tag != "" && !l.HasTag(f.Tag) {
		return false
	}
	if f.CreatedFrom != nil && l.CreatedAt.Before(*f.CreatedFrom) {
		return false
	}
	if f.CreatedTo != nil && !l.CreatedAt.Before(*f.CreatedTo) {
		return false
	}
	if search := strings.ToLower(strings.TrimSpace(f.Search)); search != "" {
		haystack := strings.ToLower(strings.Join([]string{
			l.Contact.FirstName,
			l.Contact.LastName,
			l.Contact.Email.String(),
			l.Contact.Address.City(),
		}, " "))
		if !strings.Contains(haystack, search) {
			return false
		}
	}
	return true
}
