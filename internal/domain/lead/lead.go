package lead

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/energyadmin/backend/internal/domain/shared"
	"github.com/energyadmin/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SystemActor performs mutations that have no human originator
const SystemActor = "system"

// Contact holds the customer contact data of a lead
type Contact struct {
	FirstName string
	LastName  string
	Email     valueobject.Email
	Phone     valueobject.Phone
	Address   valueobject.Address
}

// FullName returns first and last name
func (c Contact) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// Validate checks the required contact fields
func (c Contact) Validate() error {
	if strings.TrimSpace(c.FirstName) == "" {
		return shared.NewValidationError("First name is required")
	}
	if strings.TrimSpace(c.LastName) == "" {
		return shared.NewValidationError("Last name is required")
	}
	if len(c.FirstName) > 100 || len(c.LastName) > 100 {
		return shared.NewValidationError("Names cannot exceed 100 characters")
	}
	if c.Email.IsEmpty() {
		return shared.NewValidationError("Email is required")
	}
	if c.Address.IsEmpty() {
		return shared.NewValidationError("City is required")
	}
	return nil
}

// StatusInfo describes the current status and who set it
type StatusInfo struct {
	Current     Status
	LastChanged time.Time
	ChangedBy   string
	Reason      string
}

// Lead is the aggregate root of the sales pipeline.
// History is append-only; status only changes through Transition.
type Lead struct {
	shared.BaseAggregateRoot
	Contact             Contact
	Source              SourceAttribution
	Commission          CommissionTerms
	Status              StatusInfo
	Priority            Priority
	Products            []ProductLine
	TotalEstimatedValue decimal.Decimal
	TotalFinalValue     *decimal.Decimal // nil unless every line item has a final value
	Currency            valueobject.Currency
	LastContact         *time.Time
	NextFollowUp        *time.Time
	ConversionDate      *time.Time
	History             History
	Notes               []string
	Tags                []string
	AppointmentIDs      []string
	ProposalIDs         []string
	InvoiceIDs          []string
	EmailIDs            []string
}

// NewLeadParams carries everything an intake supplies
type NewLeadParams struct {
	Contact      Contact
	Source       SourceAttribution
	Commission   CommissionTerms
	Priority     Priority
	Currency     valueobject.Currency
	Products     []ProductInput
	Notes        []string
	Tags         []string
	NextFollowUp *time.Time
	Actor        string
	Now          time.Time
}

// NewLead creates a lead in status new with a single created history entry
func NewLead(p NewLeadParams) (*Lead, error) {
	if err := p.Contact.Validate(); err != nil {
		return nil, err
	}
	if err := p.Source.Validate(); err != nil {
		return nil, err
	}
	if err := p.Commission.Validate(); err != nil {
		return nil, err
	}
	if p.Commission.CommissionPaid || p.Commission.TotalCommissionDue != nil || p.Commission.PaymentDate != nil {
		return nil, shared.NewValidationError("Commission settlement fields cannot be set at intake")
	}
	if p.Priority == "" {
		p.Priority = DefaultPriority
	}
	if !p.Priority.IsValid() {
		return nil, shared.NewValidationError("Unknown priority %q", p.Priority)
	}
	if p.Currency == "" {
		p.Currency = valueobject.DefaultCurrency
	}
	if p.Now.IsZero() {
		return nil, shared.NewValidationError("Creation time is required")
	}

	products := make([]ProductLine, 0, len(p.Products))
	for _, input := range p.Products {
		line, err := NewProductLine(input)
		if err != nil {
			return nil, err
		}
		products = append(products, line)
	}

	commission := p.Commission.clone()
	if commission.LeadCost == nil && p.Source.AcquisitionCost.IsPositive() {
		commission.LeadCost = copyDecimal(&p.Source.AcquisitionCost)
	}

	actor := intakeActor(p)
	l := &Lead{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(p.Now),
		Contact:           p.Contact,
		Source:            p.Source,
		Commission:        commission,
		Status: StatusInfo{
			Current:     StatusNew,
			LastChanged: p.Now,
			ChangedBy:   actor,
		},
		Priority:     p.Priority,
		Products:     products,
		Currency:     p.Currency,
		NextFollowUp: copyTime(p.NextFollowUp),
	}
	for _, note := range p.Notes {
		if note = strings.TrimSpace(note); note != "" {
			l.Notes = append(l.Notes, note)
		}
	}
	for _, tag := range p.Tags {
		normalized, err := normalizeTag(tag)
		if err != nil {
			return nil, err
		}
		l.Tags = insertSorted(l.Tags, normalized)
	}
	l.recalculateTotals()

	entry := HistoryEntry{
		ID:          uuid.New(),
		Timestamp:   p.Now,
		Action:      ActionCreated,
		Description: fmt.Sprintf("Lead created from %s source", p.Source.Type),
		PerformedBy: actor,
		Details:     map[string]string{"source": string(p.Source.Type)},
	}
	if p.Source.CampaignID != "" {
		entry.Details["campaignId"] = p.Source.CampaignID
	}
	if p.Source.AffiliateCode != "" {
		entry.Details[DetailReferralCode] = p.Source.AffiliateCode
	}
	if err := l.History.Append(entry); err != nil {
		return nil, err
	}

	l.AddDomainEvent(NewLeadCreatedEvent(l, actor))
	return l, nil
}

// intakeActor resolves who created the lead. Salesperson leads are attributed
// to the salesperson, automated intakes to the system actor.
func intakeActor(p NewLeadParams) string {
	if actor := strings.TrimSpace(p.Actor); actor != "" {
		return actor
	}
	if p.Source.Type == SourceSalesperson {
		if p.Commission.SalespersonID != "" {
			return p.Commission.SalespersonID
		}
		if p.Source.SourceID != "" {
			return p.Source.SourceID
		}
	}
	return SystemActor
}

func resolveActor(actor string) string {
	if actor = strings.TrimSpace(actor); actor != "" {
		return actor
	}
	return SystemActor
}

// nextTimestamp clamps the clock so that history never goes backwards
func (l *Lead) nextTimestamp(now time.Time) time.Time {
	ts := now
	if last, ok := l.History.lastTimestamp(); ok && last.After(ts) {
		ts = last
	}
	if l.UpdatedAt.After(ts) {
		ts = l.UpdatedAt
	}
	return ts
}

// record appends an entry and bumps UpdatedAt
func (l *Lead) record(entry HistoryEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if err := l.History.Append(entry); err != nil {
		return err
	}
	l.UpdatedAt = entry.Timestamp
	return nil
}

// Transition moves the lead to target following the transition table.
// It reports false without error when the lead already rests in target and
// target is terminal, so retried calls succeed.
func (l *Lead) Transition(target Status, actor, reason string, now time.Time) (bool, error) {
	if !target.IsValid() {
		return false, shared.NewValidationError("Unknown status %q", target)
	}
	current := l.Status.Current
	if current == target && current.IsTerminal() {
		return false, nil
	}
	if !current.CanTransitionTo(target) {
		return false, l.illegalTransition(target)
	}

	actor = resolveActor(actor)
	reason = strings.TrimSpace(reason)
	ts := l.nextTimestamp(now)
	previous, next := current, target
	entry := HistoryEntry{
		Timestamp:      ts,
		Action:         ActionStatusChanged,
		Description:    fmt.Sprintf("Status changed from %s to %s", previous, next),
		PerformedBy:    actor,
		PreviousStatus: &previous,
		NewStatus:      &next,
	}
	if reason != "" {
		entry.Details = map[string]string{"reason": reason}
	}
	if err := l.record(entry); err != nil {
		return false, err
	}

	l.Status = StatusInfo{
		Current:     target,
		LastChanged: ts,
		ChangedBy:   actor,
		Reason:      reason,
	}
	l.AddDomainEvent(NewLeadStatusChangedEvent(l, previous, actor, reason, ts))

	if target.IsWon() && l.ConversionDate == nil {
		converted := ts
		l.ConversionDate = &converted
		l.AddDomainEvent(NewLeadConvertedEvent(l, ts))
	}
	return true, nil
}

func (l *Lead) illegalTransition(target Status) *shared.DomainError {
	allowed := l.Status.Current.AllowedTransitions()
	names := make([]string, len(allowed))
	for i, s := range allowed {
		names[i] = string(s)
	}
	msg := fmt.Sprintf("Cannot transition lead from %s to %s", l.Status.Current, target)
	if l.Status.Current.IsTerminal() {
		msg = fmt.Sprintf("Lead is in terminal status %s", l.Status.Current)
	}
	return shared.NewDomainError(shared.CodeIllegalTransition, msg).
		WithDetail("from", string(l.Status.Current)).
		WithDetail("to", string(target)).
		WithDetail("allowed", names)
}

// ContactRecord describes a non-status history entry
type ContactRecord struct {
	Action       HistoryAction
	Description  string
	Actor        string
	Details      map[string]string
	NextFollowUp *time.Time
}

// RecordContact appends a contact entry without touching the status.
// It is legal in every status, terminal ones included.
func (l *Lead) RecordContact(rec ContactRecord, now time.Time) (HistoryEntry, error) {
	if !rec.Action.IsContactAction() {
		return HistoryEntry{}, shared.NewValidationError("Action %q cannot be recorded as a contact", rec.Action)
	}
	description := strings.TrimSpace(rec.Description)
	if rec.Action == ActionNoteAdded && description == "" {
		return HistoryEntry{}, shared.NewValidationError("Note text is required")
	}
	if rec.Action == ActionFollowUpScheduled && rec.NextFollowUp == nil {
		return HistoryEntry{}, shared.NewValidationError("Follow-up date is required")
	}
	if description == "" {
		description = defaultContactDescription(rec.Action)
	}

	ts := l.nextTimestamp(now)
	details := copyStringMap(rec.Details)
	if rec.NextFollowUp != nil {
		if details == nil {
			details = make(map[string]string, 1)
		}
		details["nextFollowUp"] = rec.NextFollowUp.UTC().Format(time.RFC3339)
	}
	entry := HistoryEntry{
		ID:          uuid.New(),
		Timestamp:   ts,
		Action:      rec.Action,
		Description: description,
		PerformedBy: resolveActor(rec.Actor),
		Details:     details,
	}
	if err := l.record(entry); err != nil {
		return HistoryEntry{}, err
	}

	if rec.Action.IsOutreach() {
		contacted := ts
		l.LastContact = &contacted
	}
	if rec.NextFollowUp != nil {
		l.NextFollowUp = copyTime(rec.NextFollowUp)
	}
	if rec.Action == ActionNoteAdded {
		l.Notes = append(l.Notes, description)
	}
	l.linkDetails(details)

	l.AddDomainEvent(NewLeadContactRecordedEvent(l, entry))
	return entry.clone(), nil
}

func defaultContactDescription(action HistoryAction) string {
	switch action {
	case ActionContacted:
		return "Customer contacted"
	case ActionCallMade:
		return "Call made"
	case ActionEmailSent:
		return "Email sent"
	case ActionMeetingScheduled:
		return "Meeting scheduled"
	case ActionProposalSent:
		return "Proposal sent"
	case ActionReferralSent:
		return "Referral sent"
	case ActionFollowUpScheduled:
		return "Follow-up scheduled"
	}
	return string(action)
}

func (l *Lead) linkDetails(details map[string]string) {
	if id := details[DetailEmailID]; id != "" {
		l.EmailIDs = appendUnique(l.EmailIDs, id)
	}
	if id := details[DetailAppointmentID]; id != "" {
		l.AppointmentIDs = appendUnique(l.AppointmentIDs, id)
	}
	if id := details[DetailProposalID]; id != "" {
		l.ProposalIDs = appendUnique(l.ProposalIDs, id)
	}
	if id := details[DetailInvoiceID]; id != "" {
		l.InvoiceIDs = appendUnique(l.InvoiceIDs, id)
	}
}

// AddProduct adds a line item. Only allowed while the lead is not terminal.
func (l *Lead) AddProduct(input ProductInput, actor string, now time.Time) (ProductLine, error) {
	if l.IsTerminal() {
		return ProductLine{}, shared.NewInvalidStateError("Cannot add products to a lead in %s status", l.Status.Current)
	}
	line, err := NewProductLine(input)
	if err != nil {
		return ProductLine{}, err
	}

	entry := HistoryEntry{
		Timestamp:   l.nextTimestamp(now),
		Action:      ActionProductAdded,
		Description: fmt.Sprintf("Product %s added", line.Name),
		PerformedBy: resolveActor(actor),
		Details: map[string]string{
			DetailProductID:  line.ID.String(),
			"estimatedValue": line.EstimatedValue.String(),
		},
	}
	if err := l.record(entry); err != nil {
		return ProductLine{}, err
	}

	l.Products = append(l.Products, line)
	l.recalculateTotals()
	l.AddDomainEvent(NewLeadProductsChangedEvent(l, ActionProductAdded, line.ID))
	return line.clone(), nil
}

// RemoveProduct removes a line item. Only allowed while the lead is not terminal.
func (l *Lead) RemoveProduct(productID uuid.UUID, actor string, now time.Time) error {
	if l.IsTerminal() {
		return shared.NewInvalidStateError("Cannot remove products from a lead in %s status", l.Status.Current)
	}
	idx := l.productIndex(productID)
	if idx < 0 {
		return shared.NewNotFoundError("Product %s not found on lead", productID)
	}
	line := l.Products[idx]

	entry := HistoryEntry{
		Timestamp:   l.nextTimestamp(now),
		Action:      ActionProductRemoved,
		Description: fmt.Sprintf("Product %s removed", line.Name),
		PerformedBy: resolveActor(actor),
		Details:     map[string]string{DetailProductID: line.ID.String()},
	}
	if err := l.record(entry); err != nil {
		return err
	}

	l.Products = append(l.Products[:idx:idx], l.Products[idx+1:]...)
	l.recalculateTotals()
	l.AddDomainEvent(NewLeadProductsChangedEvent(l, ActionProductRemoved, productID))
	return nil
}

// RecordFinalValue records the realized value of a line item. Only legal once
// the contract is signed.
func (l *Lead) RecordFinalValue(productID uuid.UUID, value decimal.Decimal, actor string, now time.Time) error {
	if err := validateAmount("Final value", value); err != nil {
		return err
	}
	if !l.Status.Current.AllowsFinalValue() {
		return shared.NewInvalidStateError("Final values can only be recorded from contract_signed onward, lead is %s", l.Status.Current)
	}
	idx := l.productIndex(productID)
	if idx < 0 {
		return shared.NewNotFoundError("Product %s not found on lead", productID)
	}

	entry := HistoryEntry{
		Timestamp:   l.nextTimestamp(now),
		Action:      ActionFinalValueRecorded,
		Description: fmt.Sprintf("Final value of %s recorded", l.Products[idx].Name),
		PerformedBy: resolveActor(actor),
		Details: map[string]string{
			DetailProductID: productID.String(),
			"finalValue":    value.String(),
		},
	}
	if err := l.record(entry); err != nil {
		return err
	}

	l.Products[idx].FinalValue = copyDecimal(&value)
	l.recalculateTotals()
	l.AddDomainEvent(NewLeadProductsChangedEvent(l, ActionFinalValueRecorded, productID))
	return nil
}

// SetPriority changes the priority. Setting the current priority is a no-op.
func (l *Lead) SetPriority(priority Priority, actor string, now time.Time) (bool, error) {
	if !priority.IsValid() {
		return false, shared.NewValidationError("Unknown priority %q", priority)
	}
	if priority == l.Priority {
		return false, nil
	}

	entry := HistoryEntry{
		Timestamp:   l.nextTimestamp(now),
		Action:      ActionPriorityChanged,
		Description: fmt.Sprintf("Priority changed from %s to %s", l.Priority, priority),
		PerformedBy: resolveActor(actor),
		Details:     map[string]string{"from": string(l.Priority), "to": string(priority)},
	}
	if err := l.record(entry); err != nil {
		return false, err
	}
	l.Priority = priority
	l.AddDomainEvent(NewLeadUpdatedEvent(l, ActionPriorityChanged))
	return true, nil
}

// AddTag adds a tag. Tags are lower-cased; adding an existing tag is a no-op.
func (l *Lead) AddTag(tag, actor string, now time.Time) (bool, error) {
	normalized, err := normalizeTag(tag)
	if err != nil {
		return false, err
	}
	if l.HasTag(normalized) {
		return false, nil
	}

	entry := HistoryEntry{
		Timestamp:   l.nextTimestamp(now),
		Action:      ActionTagAdded,
		Description: fmt.Sprintf("Tag %s added", normalized),
		PerformedBy: resolveActor(actor),
		Details:     map[string]string{"tag": normalized},
	}
	if err := l.record(entry); err != nil {
		return false, err
	}
	l.Tags = insertSorted(l.Tags, normalized)
	l.AddDomainEvent(NewLeadUpdatedEvent(l, ActionTagAdded))
	return true, nil
}

// CommissionTermsUpdate replaces the commission agreement of a lead
type CommissionTermsUpdate struct {
	SalespersonID   string
	SalespersonRate *decimal.Decimal
	AffiliateID     string
	AffiliateRate   *decimal.Decimal
	LeadCost        *decimal.Decimal
}

// UpdateCommissionTerms replaces rates and lead cost. A previous assessment is
// discarded because it no longer matches the terms.
func (l *Lead) UpdateCommissionTerms(update CommissionTermsUpdate, actor string, now time.Time) error {
	if l.Commission.CommissionPaid {
		return shared.NewInvalidStateError("Commission has already been paid")
	}
	terms := CommissionTerms{
		SalespersonID:   strings.TrimSpace(update.SalespersonID),
		SalespersonRate: copyDecimal(update.SalespersonRate),
		AffiliateID:     strings.TrimSpace(update.AffiliateID),
		AffiliateRate:   copyDecimal(update.AffiliateRate),
		LeadCost:        copyDecimal(update.LeadCost),
	}
	if err := terms.Validate(); err != nil {
		return err
	}

	entry := HistoryEntry{
		Timestamp:   l.nextTimestamp(now),
		Action:      ActionCommissionUpdated,
		Description: "Commission terms updated",
		PerformedBy: resolveActor(actor),
		Details:     commissionDetails(terms),
	}
	if err := l.record(entry); err != nil {
		return err
	}
	l.Commission = terms
	l.AddDomainEvent(NewLeadUpdatedEvent(l, ActionCommissionUpdated))
	return nil
}

func commissionDetails(c CommissionTerms) map[string]string {
	details := make(map[string]string)
	if c.SalespersonID != "" {
		details["salespersonId"] = c.SalespersonID
	}
	if c.SalespersonRate != nil {
		details["salespersonRate"] = c.SalespersonRate.String()
	}
	if c.AffiliateID != "" {
		details["affiliateId"] = c.AffiliateID
	}
	if c.AffiliateRate != nil {
		details["affiliateRate"] = c.AffiliateRate.String()
	}
	if c.LeadCost != nil {
		details["leadCost"] = c.LeadCost.String()
	}
	return details
}

// AssessCommission fixes the commission due from the calculator. The lead
// must be won and the commission unpaid.
func (l *Lead) AssessCommission(actor string, now time.Time) (CommissionBreakdown, error) {
	if !l.Status.Current.IsWon() {
		return CommissionBreakdown{}, shared.NewInvalidStateError("Commission can only be assessed on won leads, lead is %s", l.Status.Current)
	}
	if l.Commission.CommissionPaid {
		return CommissionBreakdown{}, shared.NewInvalidStateError("Commission has already been paid")
	}

	breakdown := CalculateCommission(l)
	due := breakdown.TotalCommission.Amount()
	entry := HistoryEntry{
		Timestamp:   l.nextTimestamp(now),
		Action:      ActionCommissionAssessed,
		Description: fmt.Sprintf("Commission assessed at %s", breakdown.TotalCommission),
		PerformedBy: resolveActor(actor),
		Details: map[string]string{
			"totalCommissionDue": breakdown.TotalCommission.AmountString(),
			"netRevenue":         breakdown.NetRevenue.AmountString(),
		},
	}
	if err := l.record(entry); err != nil {
		return CommissionBreakdown{}, err
	}
	l.Commission.TotalCommissionDue = &due
	l.AddDomainEvent(NewLeadCommissionAssessedEvent(l, breakdown))
	return breakdown, nil
}

// SettleCommission marks the assessed commission as paid. Settling an already
// paid lead is a no-op and keeps the original payment date.
func (l *Lead) SettleCommission(paymentDate time.Time, actor string, now time.Time) (bool, error) {
	if l.Commission.CommissionPaid {
		return false, nil
	}
	if l.Commission.TotalCommissionDue == nil {
		return false, shared.NewInvalidStateError("Commission due has not been assessed")
	}
	if !l.Status.Current.IsWon() {
		return false, shared.NewInvalidStateError("Commission can only be settled on won leads, lead is %s", l.Status.Current)
	}

	ts := l.nextTimestamp(now)
	if paymentDate.IsZero() {
		paymentDate = ts
	}
	entry := HistoryEntry{
		Timestamp:   ts,
		Action:      ActionCommissionSettled,
		Description: "Commission settled",
		PerformedBy: resolveActor(actor),
		Details: map[string]string{
			"totalCommissionDue": l.Commission.TotalCommissionDue.StringFixed(l.Currency.MinorUnitPlaces()),
			"paymentDate":        paymentDate.UTC().Format(time.RFC3339),
		},
	}
	if err := l.record(entry); err != nil {
		return false, err
	}
	paid := paymentDate
	l.Commission.CommissionPaid = true
	l.Commission.PaymentDate = &paid
	l.AddDomainEvent(NewLeadCommissionSettledEvent(l))
	return true, nil
}

// recalculateTotals recomputes the estimated and final totals
func (l *Lead) recalculateTotals() {
	total := decimal.Zero
	final := decimal.Zero
	complete := len(l.Products) > 0
	for _, p := range l.Products {
		total = total.Add(p.EstimatedValue)
		if p.FinalValue == nil {
			complete = false
			continue
		}
		final = final.Add(*p.FinalValue)
	}
	l.TotalEstimatedValue = total
	if complete {
		l.TotalFinalValue = &final
	} else {
		l.TotalFinalValue = nil
	}
}

func (l *Lead) productIndex(id uuid.UUID) int {
	for i := range l.Products {
		if l.Products[i].ID == id {
			return i
		}
	}
	return -1
}

// GetProduct returns a copy of the line item with the given id
func (l *Lead) GetProduct(id uuid.UUID) (ProductLine, bool) {
	idx := l.productIndex(id)
	if idx < 0 {
		return ProductLine{}, false
	}
	return l.Products[idx].clone(), true
}

// IsTerminal reports whether the lead reached a terminal status
func (l *Lead) IsTerminal() bool {
	return l.Status.Current.IsTerminal()
}

// IsWon reports whether the lead converted
func (l *Lead) IsWon() bool {
	return l.Status.Current.IsWon()
}

// HasTag reports whether the lead carries tag
func (l *Lead) HasTag(tag string) bool {
	_, found := slices.BinarySearch(l.Tags, strings.ToLower(strings.TrimSpace(tag)))
	return found
}

// Value returns the final value when known, the estimated value otherwise
func (l *Lead) Value() decimal.Decimal {
	if l.TotalFinalValue != nil {
		return *l.TotalFinalValue
	}
	return l.TotalEstimatedValue
}

// Clone returns a deep copy without pending domain events
func (l *Lead) Clone() *Lead {
	out := &Lead{
		BaseAggregateRoot: shared.BaseAggregateRoot{
			BaseEntity: l.BaseEntity,
			Version:    l.Version,
		},
		Contact:             l.Contact,
		Source:              l.Source,
		Commission:          l.Commission.clone(),
		Status:              l.Status,
		Priority:            l.Priority,
		TotalEstimatedValue: l.TotalEstimatedValue,
		TotalFinalValue:     copyDecimal(l.TotalFinalValue),
		Currency:            l.Currency,
		LastContact:         copyTime(l.LastContact),
		NextFollowUp:        copyTime(l.NextFollowUp),
		ConversionDate:      copyTime(l.ConversionDate),
		History:             l.History.clone(),
		Notes:               slices.Clone(l.Notes),
		Tags:                slices.Clone(l.Tags),
		AppointmentIDs:      slices.Clone(l.AppointmentIDs),
		ProposalIDs:         slices.Clone(l.ProposalIDs),
		InvoiceIDs:          slices.Clone(l.InvoiceIDs),
		EmailIDs:            slices.Clone(l.EmailIDs),
	}
	if l.Products != nil {
		out.Products = make([]ProductLine, len(l.Products))
		for i, p := range l.Products {
			out.Products[i] = p.clone()
		}
	}
	return out
}

func normalizeTag(tag string) (string, error) {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if tag == "" {
		return "", shared.NewValidationError("Tag cannot be empty")
	}
	if len(tag) > 50 {
		return "", shared.NewValidationError("Tag cannot exceed 50 characters")
	}
	return tag, nil
}

func insertSorted(tags []string, tag string) []string {
	idx, found := slices.BinarySearch(tags, tag)
	if found {
		return tags
	}
	return slices.Insert(tags, idx, tag)
}

func appendUnique(ids []string, id string) []string {
	if slices.Contains(ids, id) {
		return ids
	}
	return append(ids, id)
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
