package lead

// Status represents the pipeline stage of a lead
type Status string

const (
	StatusNew                   Status = "new"
	StatusContacted             Status = "contacted"
	StatusQualified             Status = "qualified"
	StatusProposalSent          Status = "proposal_sent"
	StatusNegotiation           Status = "negotiation"
	StatusContractSigned        Status = "contract_signed"
	StatusInstallationScheduled Status = "installation_scheduled"
	StatusCompleted             Status = "completed"
	StatusClosedWon             Status = "closed_won"
	StatusClosedLost            Status = "closed_lost"
	StatusNotReachable          Status = "not_reachable"
	StatusFollowUpLater         Status = "follow_up_later"
	StatusReferralSent          Status = "referral_sent"
)

// AllStatuses lists every status in pipeline order
var AllStatuses = []Status{
	StatusNew,
	StatusContacted,
	StatusQualified,
	StatusProposalSent,
	StatusNegotiation,
	StatusContractSigned,
	StatusInstallationScheduled,
	StatusCompleted,
	StatusClosedWon,
	StatusClosedLost,
	StatusNotReachable,
	StatusFollowUpLater,
	StatusReferralSent,
}

// transitions is the legal transition table. Statuses missing from the map
// (terminal states and referral_sent) have no outgoing edges.
var transitions = map[Status][]Status{
	StatusNew:                   {StatusContacted, StatusNotReachable},
	StatusContacted:             {StatusQualified, StatusNotReachable, StatusFollowUpLater},
	StatusQualified:             {StatusProposalSent, StatusFollowUpLater},
	StatusProposalSent:          {StatusNegotiation, StatusClosedLost, StatusFollowUpLater},
	StatusNegotiation:           {StatusContractSigned, StatusClosedLost},
	StatusContractSigned:        {StatusInstallationScheduled, StatusClosedWon},
	StatusInstallationScheduled: {StatusCompleted},
	StatusNotReachable:          {StatusContacted, StatusClosedLost},
	StatusFollowUpLater:         {StatusContacted, StatusQualified, StatusClosedLost},
}

// IsValid checks if the status is a known Status
func (s Status) IsValid() bool {
	switch s {
	case StatusNew, StatusContacted, StatusQualified, StatusProposalSent, StatusNegotiation,
		StatusContractSigned, StatusInstallationScheduled, StatusCompleted, StatusClosedWon,
		StatusClosedLost, StatusNotReachable, StatusFollowUpLater, StatusReferralSent:
		return true
	}
	return false
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// IsTerminal reports whether no further transition is legal
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusClosedWon || s == StatusClosedLost
}

// IsWon reports whether the status counts as a conversion
func (s Status) IsWon() bool {
	return s == StatusClosedWon || s == StatusCompleted
}

// AllowsFinalValue reports whether final product values may be recorded
func (s Status) AllowsFinalValue() bool {
	switch s {
	case StatusContractSigned, StatusInstallationScheduled, StatusCompleted, StatusClosedWon:
		return true
	}
	return false
}

// AllowedTransitions returns the legal targets from this status
func (s Status) AllowedTransitions() []Status {
	targets := transitions[s]
	out := make([]Status, len(targets))
	copy(out, targets)
	return out
}

// CanTransitionTo checks if the status can transition to the target status
func (s Status) CanTransitionTo(target Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// ParseStatus converts a raw value into a Status
func ParseStatus(raw string) (Status, bool) {
	s := Status(raw)
	return s, s.IsValid()
}
