// util/cache_service.go

package util

import (
	"context"

	"github.com/clearops/clearance/db"
	"github.com/clearops/clearance/model"
)

type CacheService struct{}

func NewCacheService() *CacheService {
	return &CacheService{}
}

func (c *CacheService) GetApproval(ctx context.Context, approvalID string) (*model.Approval, error) {
	return db.GetCachedApproval(ctx, approvalID)
}

func (c *CacheService) SetApproval(ctx context.Context, approval model.Approval) error {
	return db.CacheApproval(ctx, &approval)
}

func (c *CacheService) DeleteApproval(ctx context.Context, approvalID string) error {
	return db.DeleteCachedApproval(ctx, approvalID)
}
