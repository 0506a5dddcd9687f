// db/redis.go
package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	clearance_errors "github.com/clearops/clearance/errors"
	logger "github.com/clearops/clearance/logging"
	"github.com/clearops/clearance/model"
)

var RedisClient *redis.Client

func InitRedis() error {
	RedisClient = redis.NewClient(&redis.Options{
		Addr:         viper.GetString("redis.addr"),
		Password:     viper.GetString("redis.password"),
		DB:           viper.GetInt("redis.db"),
		DialTimeout:  viper.GetDuration("redis.dialTimeout"),
		ReadTimeout:  viper.GetDuration("redis.readTimeout"),
		WriteTimeout: viper.GetDuration("redis.writeTimeout"),
		PoolSize:     viper.GetInt("redis.poolSize"),
		PoolTimeout:  viper.GetDuration("redis.poolTimeout"),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := RedisClient.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Successfully connected to Redis")
	return nil
}

func CloseRedis() {
	if RedisClient != nil {
		if err := RedisClient.Close(); err != nil {
			logger.Error("Error closing Redis connection", zap.Error(err))
		}
	}
}

func tokenKey(tokenID string) string {
	return fmt.Sprintf("token:%s", tokenID)
}

// StoreToken persists an off-platform decision token until its expiry.
func StoreToken(ctx context.Context, tok *model.OffPlatformDecisionTokenV1) error {
	tokenJSON, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}

	expiresAt, err := time.Parse(time.RFC3339, tok.ExpiresAtIso)
	if err != nil {
		return fmt.Errorf("token expiry is not a valid RFC3339 timestamp: %w", err)
	}
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return fmt.Errorf("token is already past its expiry")
	}

	// Tokens stay resident for a day beyond expiry so late attempts get
	// a proper "expired" rejection instead of "not found".
	err = RedisClient.Set(ctx, tokenKey(tok.TokenID), tokenJSON, ttl+24*time.Hour).Err()
	if err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}

	logger.Debug("Token stored", zap.String("tokenID", tok.TokenID))
	return nil
}

// GetToken loads a token by id. A missing token returns ErrTokenNotFound.
func GetToken(ctx context.Context, tokenID string) (*model.OffPlatformDecisionTokenV1, error) {
	tokenJSON, err := RedisClient.Get(ctx, tokenKey(tokenID)).Result()
	if err == redis.Nil {
		return nil, clearance_errors.ErrTokenNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to get token: %w", err)
	}

	var tok model.OffPlatformDecisionTokenV1
	if err := json.Unmarshal([]byte(tokenJSON), &tok); err != nil {
		return nil, fmt.Errorf("failed to unmarshal token: %w", err)
	}
	return &tok, nil
}

// TransitionTokenStatus moves a token from one status to another with a
// WATCH-guarded compare-and-swap. Two concurrent consumers cannot both
// succeed: the loser sees the new status and gets ErrTokenConflict.
func TransitionTokenStatus(ctx context.Context, tokenID string, from, to model.TokenStatus) (*model.OffPlatformDecisionTokenV1, error) {
	key := tokenKey(tokenID)
	var updated *model.OffPlatformDecisionTokenV1

	txf := func(tx *redis.Tx) error {
		tokenJSON, err := tx.Get(ctx, key).Result()
		if err == redis.Nil {
			return clearance_errors.ErrTokenNotFound
		} else if err != nil {
			return err
		}

		var tok model.OffPlatformDecisionTokenV1
		if err := json.Unmarshal([]byte(tokenJSON), &tok); err != nil {
			return fmt.Errorf("failed to unmarshal token: %w", err)
		}
		if tok.Status != from {
			return clearance_errors.ErrTokenConflict
		}

		tok.Status = to
		nextJSON, err := json.Marshal(&tok)
		if err != nil {
			return fmt.Errorf("failed to marshal token: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, nextJSON, redis.KeepTTL)
			return nil
		})
		if err == nil {
			updated = &tok
		}
		return err
	}

	for i := 0; i < 3; i++ {
		err := RedisClient.Watch(ctx, txf, key)
		if err == nil {
			logger.Debug("Token status transitioned",
				zap.String("tokenID", tokenID),
				zap.String("from", string(from)),
				zap.String("to", string(to)))
			return updated, nil
		}
		if err == redis.TxFailedErr {
			continue // key changed under us, retry the watch
		}
		return nil, err
	}
	return nil, clearance_errors.ErrTokenConflict
}

func RateLimit(ctx context.Context, key string, limit int, per time.Duration) (bool, error) {
	pipe := RedisClient.Pipeline()
	now := time.Now().UnixNano()
	key = fmt.Sprintf("ratelimit:%s", key)

	pipe.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", now-(per.Nanoseconds())))
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now), Member: now})
	pipe.ZCard(ctx, key)
	pipe.Expire(ctx, key, per)

	cmds, err := pipe.Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to execute rate limit commands: %w", err)
	}

	count := cmds[2].(*redis.IntCmd).Val()
	allowed := count <= int64(limit)
	logger.Debug("Rate limit check",
		zap.String("key", key),
		zap.Int64("count", count),
		zap.Int("limit", limit),
		zap.Bool("allowed", allowed))
	return allowed, nil
}

// LockApproval takes the distributed single-writer lock for one
// approval's evidence chain.
func LockApproval(ctx context.Context, approvalID string, ttl time.Duration) (bool, error) {
	key := fmt.Sprintf("lock:approval:%s", approvalID)
	locked, err := RedisClient.SetNX(ctx, key, "locked", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire approval lock: %w", err)
	}
	logger.Debug("Approval lock acquisition attempt",
		zap.String("approvalID", approvalID),
		zap.Bool("locked", locked))
	return locked, nil
}

// UnlockApproval releases the approval lock.
func UnlockApproval(ctx context.Context, approvalID string) error {
	key := fmt.Sprintf("lock:approval:%s", approvalID)
	if err := RedisClient.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to release approval lock: %w", err)
	}
	return nil
}

func approvalCacheKey(approvalID string) string {
	return fmt.Sprintf("approval:%s", approvalID)
}

// CacheApproval stores an approval for fast context assembly.
func CacheApproval(ctx context.Context, approval *model.Approval) error {
	approvalJSON, err := json.Marshal(approval)
	if err != nil {
		return fmt.Errorf("failed to marshal approval: %w", err)
	}
	err = RedisClient.Set(ctx, approvalCacheKey(approval.ID), approvalJSON, time.Hour).Err()
	if err != nil {
		return fmt.Errorf("failed to cache approval: %w", err)
	}
	return nil
}

// GetCachedApproval returns the cached approval, or (nil, nil) on a miss.
func GetCachedApproval(ctx context.Context, approvalID string) (*model.Approval, error) {
	approvalJSON, err := RedisClient.Get(ctx, approvalCacheKey(approvalID)).Result()
	if err == redis.Nil {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to get cached approval: %w", err)
	}

	var approval model.Approval
	if err := json.Unmarshal([]byte(approvalJSON), &approval); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached approval: %w", err)
	}
	return &approval, nil
}

func DeleteCachedApproval(ctx context.Context, approvalID string) error {
	if err := RedisClient.Del(ctx, approvalCacheKey(approvalID)).Err(); err != nil {
		return fmt.Errorf("failed to delete cached approval: %w", err)
	}
	return nil
}
