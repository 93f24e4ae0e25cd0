package models

import "time"

// ApplicationStatus is where a job application stands.
type ApplicationStatus string

const (
	StatusApplied   ApplicationStatus = "APPLIED"
	StatusInterview ApplicationStatus = "INTERVIEW"
	StatusOffer     ApplicationStatus = "OFFER"
	StatusRejected  ApplicationStatus = "REJECTED"
	StatusAccepted  ApplicationStatus = "ACCEPTED"
	StatusWithdrawn ApplicationStatus = "WITHDRAWN"
)

// ApplicationStatuses lists every accepted status, in pipeline order.
var ApplicationStatuses = []ApplicationStatus{
	StatusApplied, StatusInterview, StatusOffer, StatusRejected, StatusAccepted, StatusWithdrawn,
}

// JobApplication is a user's record of one application.
type JobApplication struct {
	ID          int64
	UserID      int64
	CompanyName string
	Position    string
	Status      ApplicationStatus
	// AppliedDate has day precision; nil when unknown.
	AppliedDate *time.Time
	Notes       string
	// ResumeKey is the object-storage key of the attached resume, if any.
	ResumeKey *string
	CreatedAt time.Time
	UpdatedAt time.Time
}
