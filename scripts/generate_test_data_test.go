package main

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/healthhub/internal/db"
	"github.com/healthhub/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"
)

func TestDemoPagesAreValid(t *testing.T) {
	for _, page := range demoPages() {
		assert.NoError(t, page.Content.Validate(), page.Slug)
	}
}

func TestSeedDemoPagesIsIdempotent(t *testing.T) {
	gdb, err := db.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared", logger.Silent)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})

	pages := service.NewPageService(gdb)
	ctx := context.Background()

	created, err := seedDemoPages(ctx, pages)
	require.NoError(t, err)
	assert.Equal(t, len(demoPages()), created)

	created, err = seedDemoPages(ctx, pages)
	require.NoError(t, err)
	assert.Zero(t, created)

	published := true
	result, err := pages.List(ctx, service.PageFilter{Published: &published})
	require.NoError(t, err)
	assert.EqualValues(t, 3, result.Total)
}
