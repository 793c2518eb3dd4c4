package dto

import (
	"time"

	"github.com/noah-isme/sma-gatepass-api/internal/models"
)

// IssueGatePassRequest creates a new gate pass. Which subject fields are
// required depends on the requested type.
type IssueGatePassRequest struct {
	Type         models.PassType `json:"type" binding:"required"`
	ClassID      string          `json:"classId,omitempty"`
	StudentID    string          `json:"studentId,omitempty"`
	EmployeeID   string          `json:"employeeId,omitempty"`
	VisitorName  string          `json:"visitorName,omitempty"`
	VisitorPhone string          `json:"visitorPhone,omitempty"`
	Reason       string          `json:"reason" binding:"required"`
	Destination  string          `json:"destination,omitempty"`
}

// EditGatePassRequest mutates the editable fields of a pass. Type, subject
// reference and pass number are immutable after issuance.
type EditGatePassRequest struct {
	Reason       *string `json:"reason,omitempty"`
	Destination  *string `json:"destination,omitempty"`
	VisitorName  *string `json:"visitorName,omitempty"`
	VisitorPhone *string `json:"visitorPhone,omitempty"`
}

// CancelGatePassRequest optionally records why the pass was cancelled.
type CancelGatePassRequest struct {
	CancelReason string `json:"cancelReason,omitempty"`
}

// CancelGatePassResult distinguishes a fresh cancellation from the
// idempotent repeat case.
type CancelGatePassResult struct {
	Pass             *models.GatePass `json:"pass"`
	AlreadyCancelled bool             `json:"alreadyCancelled"`
}

// GatePassQuery constrains the listing endpoint.
type GatePassQuery struct {
	Status string `form:"status"`
	Type   string `form:"type"`
	Q      string `form:"q"`
	Limit  int    `form:"limit"`
	Offset int    `form:"offset"`
}

// GatePassListResponse carries the filtered collection plus status counts
// derived from the same filtered set, so dashboard tiles always agree with
// the table they summarise.
type GatePassListResponse struct {
	Items  []models.GatePassDetail `json:"items"`
	Counts models.PassStatusCounts `json:"counts"`
}

// ExportArtifact describes a generated register export available for
// download through a signed URL.
type ExportArtifact struct {
	ExportID  string    `json:"exportId"`
	FileName  string    `json:"fileName"`
	Format    string    `json:"format"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}
