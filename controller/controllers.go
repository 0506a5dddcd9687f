// controller/controllers.go
package controller

import (
	"github.com/clearops/clearance/audit"
	"github.com/clearops/clearance/service"
)

type Controllers struct {
	Approval   *ApprovalController
	Policy     *PolicyController
	Token      *TokenController
	Delegation *DelegationController
}

func InitializeControllers(services *service.Services, auditService audit.Service) *Controllers {
	return &Controllers{
		Approval:   NewApprovalController(services.Approval, auditService),
		Policy:     NewPolicyController(services.Policy),
		Token:      NewTokenController(services.Token),
		Delegation: NewDelegationController(services.Delegation),
	}
}
