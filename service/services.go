// service/services.go
package service

import (
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/clearops/clearance/audit"
	"github.com/clearops/clearance/dao"
	"github.com/clearops/clearance/util"
)

type Services struct {
	Approval   IApprovalService
	Policy     IPolicyService
	Token      ITokenService
	Delegation IDelegationService
}

func InitializeServices(
	driver neo4j.Driver,
	auditService audit.Service,
	validationUtil *util.ValidationUtil,
	cacheService *util.CacheService,
	notificationSvc *util.NotificationService,
	eventBus *util.EventBus,
) (*Services, error) {
	runDAO := dao.NewRunDAO(driver)
	approvalDAO := dao.NewApprovalDAO(driver)
	policyRuleDAO := dao.NewPolicyRuleDAO(driver)
	delegationDAO := dao.NewDelegationDAO(driver)

	policySvc := NewPolicyService(policyRuleDAO, validationUtil, eventBus)
	approvalSvc := NewApprovalService(runDAO, approvalDAO, delegationDAO, policySvc, auditService, validationUtil, cacheService, notificationSvc, eventBus)

	services := &Services{
		Approval:   approvalSvc,
		Policy:     policySvc,
		Token:      NewTokenService(approvalDAO, approvalSvc, notificationSvc, eventBus),
		Delegation: NewDelegationService(delegationDAO, eventBus),
	}

	return services, nil
}
