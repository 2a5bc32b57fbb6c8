package lead

import (
	"time"

	"github.com/energyadmin/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// HistoryAction classifies a history entry
type HistoryAction string

const (
	ActionCreated            HistoryAction = "created"
	ActionStatusChanged      HistoryAction = "status_changed"
	ActionContacted          HistoryAction = "contacted"
	ActionCallMade           HistoryAction = "call_made"
	ActionEmailSent          HistoryAction = "email_sent"
	ActionMeetingScheduled   HistoryAction = "meeting_scheduled"
	ActionProposalSent       HistoryAction = "proposal_sent"
	ActionNoteAdded          HistoryAction = "note_added"
	ActionReferralSent       HistoryAction = "referral_sent"
	ActionFollowUpScheduled  HistoryAction = "follow_up_scheduled"
	ActionProductAdded       HistoryAction = "product_added"
	ActionProductRemoved     HistoryAction = "product_removed"
	ActionFinalValueRecorded HistoryAction = "final_value_recorded"
	ActionPriorityChanged    HistoryAction = "priority_changed"
	ActionCommissionUpdated  HistoryAction = "commission_updated"
	ActionCommissionAssessed HistoryAction = "commission_assessed"
	ActionCommissionSettled  HistoryAction = "commission_settled"
	ActionTagAdded           HistoryAction = "tag_added"
)

// IsValid checks if the action is known
func (a HistoryAction) IsValid() bool {
	switch a {
	case ActionCreated, ActionStatusChanged, ActionContacted, ActionCallMade, ActionEmailSent,
		ActionMeetingScheduled, ActionProposalSent, ActionNoteAdded, ActionReferralSent,
		ActionFollowUpScheduled, ActionProductAdded, ActionProductRemoved, ActionFinalValueRecorded,
		ActionPriorityChanged, ActionCommissionUpdated, ActionCommissionAssessed,
		ActionCommissionSettled, ActionTagAdded:
		return true
	}
	return false
}

// IsContactAction reports whether the action may be recorded through RecordContact
func (a HistoryAction) IsContactAction() bool {
	switch a {
	case ActionContacted, ActionCallMade, ActionEmailSent, ActionMeetingScheduled,
		ActionProposalSent, ActionNoteAdded, ActionReferralSent, ActionFollowUpScheduled:
		return true
	}
	return false
}

// IsOutreach reports whether the action counts as reaching out to the customer
func (a HistoryAction) IsOutreach() bool {
	switch a {
	case ActionContacted, ActionCallMade, ActionEmailSent, ActionMeetingScheduled, ActionProposalSent:
		return true
	}
	return false
}

// Detail keys with meaning to the engine
const (
	DetailEmailID       = "emailId"
	DetailAppointmentID = "appointmentId"
	DetailProposalID    = "proposalId"
	DetailInvoiceID     = "invoiceId"
	DetailReferralCode  = "referralCode"
	DetailTemplate      = "template"
	DetailProductID     = "productId"
)

// HistoryEntry is an immutable audit record
type HistoryEntry struct {
	ID             uuid.UUID
	Timestamp      time.Time
	Action         HistoryAction
	Description    string
	PerformedBy    string
	PreviousStatus *Status
	NewStatus      *Status
	Details        map[string]string
}

func (e HistoryEntry) clone() HistoryEntry {
	out := e
	if e.PreviousStatus != nil {
		s := *e.PreviousStatus
		out.PreviousStatus = &s
	}
	if e.NewStatus != nil {
		s := *e.NewStatus
		out.NewStatus = &s
	}
	out.Details = copyStringMap(e.Details)
	return out
}

// History is the append-only audit trail of a lead.
// Entries can only be appended; there is no way to edit or remove one.
type History struct {
	entries []HistoryEntry
}

// HistoryFromEntries rebuilds a ledger from stored entries in their original order
func HistoryFromEntries(entries []HistoryEntry) (History, error) {
	var h History
	for _, e := range entries {
		if err := h.Append(e); err != nil {
			return History{}, err
		}
	}
	return h, nil
}

// Append adds an entry. It fails with ORDERING_VIOLATION when the entry is
// older than the last recorded one.
func (h *History) Append(entry HistoryEntry) error {
	if !entry.Action.IsValid() {
		return shared.NewValidationError("Unknown history action %q", entry.Action)
	}
	if last, ok := h.Last(); ok && entry.Timestamp.Before(last.Timestamp) {
		return shared.ErrOrderingViolation.
			WithDetail("last", last.Timestamp.Format(time.RFC3339Nano)).
			WithDetail("attempted", entry.Timestamp.Format(time.RFC3339Nano))
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	h.entries = append(h.entries, entry.clone())
	return nil
}

// Entries returns a copy of all entries in append order
func (h History) Entries() []HistoryEntry {
	out := make([]HistoryEntry, len(h.entries))
	for i, e := range h.entries {
		out[i] = e.clone()
	}
	return out
}

// Len returns the number of entries
func (h History) Len() int {
	return len(h.entries)
}

// Last returns the most recent entry
func (h History) Last() (HistoryEntry, bool) {
	if len(h.entries) == 0 {
		return HistoryEntry{}, false
	}
	return h.entries[len(h.entries)-1].clone(), true
}

// CountAction counts entries with the given action
func (h History) CountAction(action HistoryAction) int {
	n := 0
	for _, e := range h.entries {
		if e.Action == action {
			n++
		}
	}
	return n
}

func (h History) clone() History {
	return History{entries: h.Entries()}
}

func (h History) lastTimestamp() (time.Time, bool) {
	if len(h.entries) == 0 {
		return time.Time{}, false
	}
	return h.entries[len(h.entries)-1].Timestamp, true
}
