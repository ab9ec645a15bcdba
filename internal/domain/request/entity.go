// internal/domain/request/entity.go
package request

import "time"

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Valid reports whether s is a known request status
func (s Status) Valid() bool {
	return s == StatusPending || s == StatusApproved || s == StatusRejected
}

type Type string

const (
	TypeMonetary    Type = "monetary"
	TypeNonMonetary Type = "non-monetary"
)

type Verdict string

const (
	VerdictApproved Verdict = "approved"
	VerdictRejected Verdict = "rejected"
)

// Decision is a single board member's verdict on a request
type Decision struct {
	BoardMemberID int64   `json:"board_member_id"`
	Username      string  `json:"username"`
	Decision      Verdict `json:"decision"`
}

// Request is an employee submission awaiting or carrying decisions
type Request struct {
	ID               int64      `json:"id"`
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	Status           Status     `json:"status"`
	Type             Type       `json:"type,omitempty"`
	IsMonetary       bool       `json:"is_monetary"`
	Amount           *float64   `json:"amount,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	EmployeeUsername string     `json:"employee_username,omitempty"`
	Decisions        []Decision `json:"decisions,omitempty"`
}

// Stats is the dashboard payload of /requests/stats. Approvers get the
// organisation-wide counters, employees get their own.
type Stats struct {
	TotalRequests    int `json:"totalRequests"`
	ApprovedRequests int `json:"approvedRequests,omitempty"`
	RejectedRequests int `json:"rejectedRequests,omitempty"`
	PendingRequests  int `json:"pendingRequests,omitempty"`
	TotalEmployees   int `json:"totalEmployees,omitempty"`

	Approved int `json:"approved,omitempty"`
	Rejected int `json:"rejected,omitempty"`
	Pending  int `json:"pending,omitempty"`
}

// FilterByStatus returns the requests matching status; an empty status keeps all.
func FilterByStatus(reqs []Request, status Status) []Request {
	if status == "" {
		return reqs
	}
	out := make([]Request, 0, len(reqs))
	for _, r := range reqs {
		if r.Status == status {
			out = append(out, r)
		}
	}
	return out
}
