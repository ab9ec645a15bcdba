// internal/domain/request/dto.go
package request

import "errors"

var ErrAmountRequired = errors.New("monetary requests need a positive amount")

// CreateRequest is the body of POST /requests
type CreateRequest struct {
	Title       string   `json:"title" form:"title" binding:"required,max=255"`
	Description string   `json:"description" form:"description" binding:"required"`
	Type        Type     `json:"type" form:"type" binding:"required,oneof=monetary non-monetary"`
	Amount      *float64 `json:"amount,omitempty" form:"amount"`
}

// Validate applies the rules the backend expects before a submission.
func (r *CreateRequest) Validate() error {
	if r.Type == TypeMonetary {
		if r.Amount == nil || *r.Amount <= 0 {
			return ErrAmountRequired
		}
		return nil
	}
	r.Amount = nil
	return nil
}

// DecideRequest is the body of POST /requests/:id/decide. BoardMemberID is
// only honoured by the backend for admins editing another member's verdict.
type DecideRequest struct {
	Decision      Verdict `json:"decision" form:"decision" binding:"required,oneof=approved rejected"`
	BoardMemberID *int64  `json:"boardMemberId,omitempty" form:"board_member_id"`
}
