package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"studygen_backend/pkg/logger"
)

const preferenceTTL = 30 * 24 * time.Hour

// PreferenceService records which technique a learner last used per
// module. Write-only from the pipeline's perspective; downstream
// recommendation consumers read the keys. Failures are logged and
// swallowed, never propagated.
type PreferenceService struct {
	redis *redis.Client
}

func NewPreferenceService(client *redis.Client) *PreferenceService {
	return &PreferenceService{redis: client}
}

func (s *PreferenceService) RecordTechnique(ctx context.Context, userID, moduleID uint, technique string) {
	if s == nil || s.redis == nil {
		return
	}
	key := fmt.Sprintf("pref:user:%d:module:%d", userID, moduleID)
	if err := s.redis.Set(ctx, key, technique, preferenceTTL).Err(); err != nil {
		logger.Log.Warn("failed to record technique preference",
			zap.Uint("userId", userID), zap.Uint("moduleId", moduleID), zap.Error(err))
	}
}
