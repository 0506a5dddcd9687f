// errors/approval_errors.go
package errors

import "errors"

var (
	ErrRunNotFound = errors.New("run not found")
	ErrRunConflict = errors.New("run conflict")

	ErrApprovalNotFound    = errors.New("approval not found")
	ErrApprovalConflict    = errors.New("approval conflict")
	ErrInvalidApprovalData = errors.New("invalid approval data")

	ErrPolicyRuleNotFound    = errors.New("policy rule not found")
	ErrPolicyRuleConflict    = errors.New("policy rule conflict")
	ErrInvalidPolicyRuleData = errors.New("invalid policy rule data")

	ErrDatabaseOperation = errors.New("database operation failed")
	ErrInternalServer    = errors.New("internal server error")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrInvalidPagination = errors.New("invalid pagination parameters")
)
