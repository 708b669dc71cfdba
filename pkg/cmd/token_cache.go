package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ruleflow-io/ruleflow/pkg/auth"
)

// NewTokenCache creates a token cache. An empty redisAddr selects the
// in-process cache; otherwise tokens are shared through Redis so the API
// server and the scheduler daemon reuse each other's acquisitions.
func NewTokenCache(ctx context.Context, logger *slog.Logger, redisAddr, redisPassword string, redisDB int) (auth.TokenCache, error) {
	if redisAddr == "" {
		return auth.NewMemoryTokenCache(), nil
	}

	cache, err := auth.NewRedisTokenCache(ctx, logger, redisAddr, redisPassword, redisDB)
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis token cache: %w", err)
	}

	return cache, nil
}
