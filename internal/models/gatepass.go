package models

import "time"

// PassType enumerates who a gate pass is issued for.
type PassType string

const (
	PassTypeStudent  PassType = "STUDENT"
	PassTypeEmployee PassType = "EMPLOYEE"
	PassTypeVisitor  PassType = "VISITOR"
)

// PassStatus captures the lifecycle states of a gate pass.
type PassStatus string

const (
	PassStatusIssued    PassStatus = "ISSUED"
	PassStatusOut       PassStatus = "OUT"
	PassStatusIn        PassStatus = "IN"
	PassStatusCancelled PassStatus = "CANCELLED"
)

// passTransitions lists the legal next states per current state.
// IN and CANCELLED are terminal.
var passTransitions = map[PassStatus][]PassStatus{
	PassStatusIssued: {PassStatusOut, PassStatusCancelled},
	PassStatusOut:    {PassStatusIn, PassStatusCancelled},
}

// CanTransitionTo reports whether moving to next is a legal transition.
func (s PassStatus) CanTransitionTo(next PassStatus) bool {
	for _, allowed := range passTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is legal from this state.
func (s PassStatus) Terminal() bool {
	return len(passTransitions[s]) == 0
}

// GatePass is one ledger record per issued pass. Records are append-only:
// rows are never deleted, only transitioned.
type GatePass struct {
	ID           string     `db:"id" json:"id"`
	PassNo       string     `db:"pass_no" json:"passNo"`
	Scope        string     `db:"scope" json:"scope"`
	Type         PassType   `db:"type" json:"type"`
	StudentID    *string    `db:"student_id" json:"studentId,omitempty"`
	EmployeeID   *string    `db:"employee_id" json:"employeeId,omitempty"`
	VisitorName  *string    `db:"visitor_name" json:"visitorName,omitempty"`
	VisitorPhone *string    `db:"visitor_phone" json:"visitorPhone,omitempty"`
	Reason       string     `db:"reason" json:"reason"`
	Destination  *string    `db:"destination" json:"destination,omitempty"`
	Status       PassStatus `db:"status" json:"status"`
	IssuedBy     string     `db:"issued_by" json:"issuedBy"`
	IssuedAt     time.Time  `db:"issued_at" json:"issuedAt"`
	OutAt        *time.Time `db:"out_at" json:"outAt,omitempty"`
	InAt         *time.Time `db:"in_at" json:"inAt,omitempty"`
	CancelledAt  *time.Time `db:"cancelled_at" json:"cancelledAt,omitempty"`
	CancelReason *string    `db:"cancel_reason" json:"cancelReason,omitempty"`
}

// GatePassDetail augments the ledger row with the person identity resolved
// from the directory at query time. The ledger itself stores only the
// reference, so directory edits show up live.
type GatePassDetail struct {
	GatePass
	PersonName  string  `db:"person_name" json:"personName"`
	PersonPhone *string `db:"person_phone" json:"personPhone,omitempty"`
	ClassName   *string `db:"class_name" json:"className,omitempty"`
}

// Subject is the tagged person reference carried by a gate pass. Exactly one
// of the constructors below produces a valid value; the type field decides
// which reference columns are populated.
type Subject struct {
	Type         PassType
	StudentID    string
	ClassID      string
	EmployeeID   string
	VisitorName  string
	VisitorPhone string
}

// StudentSubject references a student of a class.
func StudentSubject(classID, studentID string) Subject {
	return Subject{Type: PassTypeStudent, ClassID: classID, StudentID: studentID}
}

// EmployeeSubject references an employee.
func EmployeeSubject(employeeID string) Subject {
	return Subject{Type: PassTypeEmployee, EmployeeID: employeeID}
}

// VisitorSubject carries the visitor identity inline.
func VisitorSubject(name, phone string) Subject {
	return Subject{Type: PassTypeVisitor, VisitorName: name, VisitorPhone: phone}
}

// GatePassFilter constrains listing queries. Filters compose conjunctively.
type GatePassFilter struct {
	Status PassStatus
	Type   PassType
	Query  string
	Limit  int
	Offset int
}

// GateDashboardCounts aggregates KPI tiles for the front desk.
type GateDashboardCounts struct {
	IssuedToday    int `db:"issued_today"`
	CurrentlyOut   int `db:"currently_out"`
	ReturnedToday  int `db:"returned_today"`
	CancelledToday int `db:"cancelled_today"`
	VisitorsOnSite int `db:"visitors_on_site"`
}

// PassStatusCounts aggregates the filtered set by status.
type PassStatusCounts struct {
	Issued    int `db:"issued" json:"issued"`
	Out       int `db:"out" json:"out"`
	In        int `db:"in" json:"in"`
	Cancelled int `db:"cancelled" json:"cancelled"`
	Total     int `db:"total" json:"total"`
}
