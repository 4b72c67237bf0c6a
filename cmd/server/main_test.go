package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"retailpro/backend/internal/activity"
	"retailpro/backend/internal/config"
)

func TestValidateSecurityConfigRejectsWeakValues(t *testing.T) {
	assert.Error(t, validateSecurityConfig(config.Config{AuthSecret: "short"}))
	assert.Error(t, validateSecurityConfig(config.Config{}))
}

func TestValidateSecurityConfigAcceptsStrongValues(t *testing.T) {
	assert.NoError(t, validateSecurityConfig(config.Config{AuthSecret: "0123456789abcdef0123456789abcdef"}))
}

func TestOpenRepositoryInMemory(t *testing.T) {
	ctx := context.Background()

	repo, closeFn, err := openRepository(ctx, config.Config{SeedCatalog: true}, zap.NewNop())
	require.NoError(t, err)
	defer func() { _ = closeFn() }()
	products, err := repo.ListProducts(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, products)

	empty, closeEmpty, err := openRepository(ctx, config.Config{}, zap.NewNop())
	require.NoError(t, err)
	defer func() { _ = closeEmpty() }()
	products, err = empty.ListProducts(ctx)
	require.NoError(t, err)
	assert.Empty(t, products)
}

func TestOpenPublisherFallsBackToNoop(t *testing.T) {
	publisher, closeFn := openPublisher(context.Background(), config.Config{}, zap.NewNop())
	assert.IsType(t, activity.NoopPublisher{}, publisher)
	assert.Nil(t, closeFn)
}

func TestRunRejectsBadTimezone(t *testing.T) {
	err := run(config.Config{AuthSecret: "0123456789abcdef0123456789abcdef", ReportTimezone: "Nowhere/Void"}, zap.NewNop())
	assert.Error(t, err)
}
