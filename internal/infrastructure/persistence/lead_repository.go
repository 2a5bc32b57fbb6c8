package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/energyadmin/backend/internal/domain/lead"
	"github.com/energyadmin/backend/internal/domain/shared"
	"github.com/energyadmin/backend/internal/domain/shared/valueobject"
	"github.com/energyadmin/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormLeadRepository implements lead.Repository using GORM
type GormLeadRepository struct {
	db          *gorm.DB
	phoneRegion string
}

// NewGormLeadRepository creates a new GormLeadRepository
func NewGormLeadRepository(db *gorm.DB, phoneRegion string) *GormLeadRepository {
	if phoneRegion == "" {
		phoneRegion = valueobject.DefaultPhoneRegion
	}
	return &GormLeadRepository{db: db, phoneRegion: phoneRegion}
}

// AutoMigrate creates or updates the lead tables. Production schemas are
// managed by the SQL migrations; this is used for tests and the sqlite driver.
func (r *GormLeadRepository) AutoMigrate() error {
	return r.db.AutoMigrate(&models.LeadModel{}, &models.LeadProductModel{}, &models.LeadHistoryEntryModel{})
}

func (r *GormLeadRepository) preload(query *gorm.DB) *gorm.DB {
	return query.
		Preload("Products", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Preload("History", func(db *gorm.DB) *gorm.DB {
			return db.Order("occurred_at ASC, sequence ASC")
		})
}

// FindByID finds a lead by its ID
func (r *GormLeadRepository) FindByID(ctx context.Context, id uuid.UUID) (*lead.Lead, error) {
	var model models.LeadModel
	if err := r.preload(r.db.WithContext(ctx)).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("Lead %s not found", id)
		}
		return nil, fmt.Errorf("failed to load lead: %w", err)
	}
	return model.ToDomain(r.phoneRegion)
}

// FindAll finds one page of leads matching the filter
func (r *GormLeadRepository) FindAll(ctx context.Context, filter lead.ListFilter) ([]*lead.Lead, int64, error) {
	base := r.applyFilterWithoutPagination(r.db.WithContext(ctx).Model(&models.LeadModel{}), filter)

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count leads: %w", err)
	}

	var rows []models.LeadModel
	query := r.preload(r.applyFilter(r.db.WithContext(ctx).Model(&models.LeadModel{}), filter))
	if err := query.Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list leads: %w", err)
	}
	return r.toDomainList(rows, total)
}

// Save creates a lead or updates an existing one without a version check
func (r *GormLeadRepository) Save(ctx context.Context, l *lead.Lead) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		model := models.LeadModelFromDomain(l)
		products, history := model.Products, model.History
		model.Products, model.History = nil, nil

		if err := tx.Omit("Products", "History").Save(model).Error; err != nil {
			return fmt.Errorf("failed to save lead: %w", err)
		}
		if err := r.saveProducts(tx, l.ID, products); err != nil {
			return err
		}
		return r.appendHistory(tx, l.ID, history)
	})
}

// SaveWithLock saves with optimistic locking (version check)
func (r *GormLeadRepository) SaveWithLock(ctx context.Context, l *lead.Lead) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current struct{ Version int }
		result := tx.Model(&models.LeadModel{}).
			Where("id = ?", l.ID).
			Select("version").
			Limit(1).
			Scan(&current)
		if result.Error != nil {
			return fmt.Errorf("failed to read lead version: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return shared.NewNotFoundError("Lead %s not found", l.ID)
		}
		if current.Version != l.Version {
			return conflictError(l.ID)
		}

		model := models.LeadModelFromDomain(l)
		products, history := model.Products, model.History
		model.Version = current.Version + 1

		updates := leadColumns(model)
		updates["version"] = model.Version
		result = tx.Model(&models.LeadModel{}).
			Where("id = ? AND version = ?", l.ID, current.Version).
			Updates(updates)
		if result.Error != nil {
			return fmt.Errorf("failed to update lead: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return conflictError(l.ID)
		}

		if err := r.saveProducts(tx, l.ID, products); err != nil {
			return err
		}
		if err := r.appendHistory(tx, l.ID, history); err != nil {
			return err
		}
		l.Version = model.Version
		return nil
	})
}

// Snapshot returns every lead ordered by creation time
func (r *GormLeadRepository) Snapshot(ctx context.Context) ([]*lead.Lead, error) {
	var rows []models.LeadModel
	if err := r.preload(r.db.WithContext(ctx)).
		Order("created_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load leads: %w", err)
	}
	leads, _, err := r.toDomainList(rows, int64(len(rows)))
	return leads, err
}

// Exists checks if a lead exists
func (r *GormLeadRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.LeadModel{}).
		Where("id = ?", id).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// saveProducts deletes removed line items and upserts the rest
func (r *GormLeadRepository) saveProducts(tx *gorm.DB, leadID uuid.UUID, products []models.LeadProductModel) error {
	ids := make([]uuid.UUID, len(products))
	for i, p := range products {
		ids[i] = p.ID
	}
	del := tx.Where("lead_id = ?", leadID)
	if len(ids) > 0 {
		del = del.Where("id NOT IN ?", ids)
	}
	if err := del.Delete(&models.LeadProductModel{}).Error; err != nil {
		return fmt.Errorf("failed to delete lead products: %w", err)
	}
	for i := range products {
		if err := tx.Save(&products[i]).Error; err != nil {
			return fmt.Errorf("failed to save lead product: %w", err)
		}
	}
	return nil
}

// appendHistory inserts the entries that are not stored yet. Stored entries
// are never updated or deleted.
func (r *GormLeadRepository) appendHistory(tx *gorm.DB, leadID uuid.UUID, history []models.LeadHistoryEntryModel) error {
	var stored int64
	if err := tx.Model(&models.LeadHistoryEntryModel{}).
		Where("lead_id = ?", leadID).
		Count(&stored).Error; err != nil {
		return fmt.Errorf("failed to count lead history: %w", err)
	}
	if int(stored) > len(history) {
		return shared.NewInvalidStateError("History of lead %s cannot shrink", leadID).
			WithDetail("stored", stored).
			WithDetail("given", len(history))
	}
	pending := history[stored:]
	if len(pending) == 0 {
		return nil
	}
	if err := tx.Create(&pending).Error; err != nil {
		return fmt.Errorf("failed to append lead history: %w", err)
	}
	return nil
}

func (r *GormLeadRepository) toDomainList(rows []models.LeadModel, total int64) ([]*lead.Lead, int64, error) {
	leads := make([]*lead.Lead, len(rows))
	for i := range rows {
		l, err := rows[i].ToDomain(r.phoneRegion)
		if err != nil {
			return nil, 0, err
		}
		leads[i] = l
	}
	return leads, total, nil
}

// applyFilter applies filter options and pagination to the query
func (r *GormLeadRepository) applyFilter(query *gorm.DB, filter lead.ListFilter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	sortField := ValidateSortField(filter.OrderBy, LeadSortFields, "created_at")
	sortOrder := ValidateSortOrder(filter.OrderDir)
	query = query.Order(sortField + " " + sortOrder).Order("id " + sortOrder)

	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}
	return query
}

// applyFilterWithoutPagination applies the match constraints only
func (r *GormLeadRepository) applyFilterWithoutPagination(query *gorm.DB, filter lead.ListFilter) *gorm.DB {
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		query = query.Where("status IN ?", statuses)
	}
	if filter.SourceType != "" {
		query = query.Where("source_type = ?", string(filter.SourceType))
	}
	if filter.Priority != "" {
		query = query.Where("priority = ?", string(filter.Priority))
	}
	if filter.SalespersonID != "" {
		query = query.Where("salesperson_id = ?", filter.SalespersonID)
	}
	if filter.Tag != "" {
		// tags are stored as a JSON array of normalized strings
		query = query.Where("tags LIKE ?", "%"+jsonStringLiteral(filter.Tag)+"%")
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at < ?", *filter.CreatedTo)
	}
	if search := strings.ToLower(strings.TrimSpace(filter.Search)); search != "" {
		pattern := "%" + search + "%"
		query = query.Where(
			"LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(city) LIKE ?",
			pattern, pattern, pattern, pattern,
		)
	}
	return query
}

func leadColumns(m *models.LeadModel) map[string]any {
	return map[string]any{
		"first_name":            m.FirstName,
		"last_name":             m.LastName,
		"email":                 m.Email,
		"phone":                 m.Phone,
		"street":                m.Street,
		"city":                  m.City,
		"postal_code":           m.PostalCode,
		"state":                 m.State,
		"country":               m.Country,
		"source_type":           m.SourceType,
		"source_id":             m.SourceID,
		"source_name":           m.SourceName,
		"acquisition_cost":      m.AcquisitionCost,
		"affiliate_code":        m.AffiliateCode,
		"campaign_id":           m.CampaignID,
		"salesperson_id":        m.SalespersonID,
		"salesperson_rate":      m.SalespersonRate,
		"affiliate_id":          m.AffiliateID,
		"affiliate_rate":        m.AffiliateRate,
		"lead_cost":             m.LeadCost,
		"total_commission_due":  m.TotalCommissionDue,
		"commission_paid":       m.CommissionPaid,
		"payment_date":          m.PaymentDate,
		"status":                m.Status,
		"status_changed_at":     m.StatusChangedAt,
		"status_changed_by":     m.StatusChangedBy,
		"status_reason":         m.StatusReason,
		"priority":              m.Priority,
		"total_estimated_value": m.TotalEstimatedValue,
		"total_final_value":     m.TotalFinalValue,
		"currency":              m.Currency,
		"last_contact":          m.LastContact,
		"next_follow_up":        m.NextFollowUp,
		"conversion_date":       m.ConversionDate,
		"notes":                 jsonColumn(m.Notes),
		"tags":                  jsonColumn(m.Tags),
		"appointment_ids":       jsonColumn(m.AppointmentIDs),
		"proposal_ids":          jsonColumn(m.ProposalIDs),
		"invoice_ids":           jsonColumn(m.InvoiceIDs),
		"email_ids":             jsonColumn(m.EmailIDs),
		"updated_at":            m.UpdatedAt,
	}
}

// jsonColumn encodes a list for a JSON column. Map based updates bypass the
// model serializer.
func jsonColumn(values []string) any {
	if values == nil {
		return nil
	}
	raw, err := json.Marshal(values)
	if err != nil {
		return nil
	}
	return string(raw)
}

func jsonStringLiteral(s string) string {
	raw, _ := json.Marshal(s)
	return string(raw)
}

func conflictError(id uuid.UUID) *shared.DomainError {
	return shared.NewDomainError(shared.CodeConcurrencyConflict, "The lead has been modified by another request").
		WithDetail("leadId", id.String())
}
