package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/wfunc/casino-builder/internal/errors"
)

func TestCasinoRepository_CreateAndGet(t *testing.T) {
	repo := NewCasinoRepository(SetupTestDB(t))
	ctx := context.Background()

	casino := CreateTestCasino("霓虹之夜")
	require.NoError(t, repo.Create(ctx, casino))
	assert.NotEmpty(t, casino.ID)
	assert.Equal(t, 1, casino.Version)

	found, err := repo.GetByID(ctx, casino.ID)
	require.NoError(t, err)
	assert.Equal(t, "霓虹之夜", found.Name)
	assert.Equal(t, "neon", found.Theme.Layout)
	assert.Equal(t, casino.Slots.Symbols, found.Slots.Symbols)
	assert.Equal(t, []string{"basicStandard", "tease", "cascade"}, found.Slots.AllowedStrategies)
}

func TestCasinoRepository_GetMissing(t *testing.T) {
	repo := NewCasinoRepository(SetupTestDB(t))

	_, err := repo.GetByID(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrCasinoNotFound))
}

func TestCasinoRepository_Update(t *testing.T) {
	repo := NewCasinoRepository(SetupTestDB(t))
	ctx := context.Background()

	casino := CreateTestCasino("原始")
	require.NoError(t, repo.Create(ctx, casino))

	casino.Name = "改名"
	casino.Owner = "someone-else"
	casino.Slots.ReelCount = 3
	require.NoError(t, repo.Update(ctx, casino))
	assert.Equal(t, 2, casino.Version)

	found, err := repo.GetByID(ctx, casino.ID)
	require.NoError(t, err)
	assert.Equal(t, "改名", found.Name)
	assert.Equal(t, "tester", found.Owner, "所有者不可修改")
	assert.Equal(t, 3, found.Slots.ReelCount)
	assert.Equal(t, 2, found.Version)

	missing := CreateTestCasino("不存在")
	missing.ID = "nope"
	err = repo.Update(ctx, missing)
	assert.True(t, apperrors.Is(err, apperrors.ErrCasinoNotFound))
}

func TestCasinoRepository_ListAndDelete(t *testing.T) {
	repo := NewCasinoRepository(SetupTestDB(t))
	ctx := context.Background()

	for _, name := range []string{"a", "b", "c"} {
		require.NoError(t, repo.Create(ctx, CreateTestCasino(name)))
	}

	p := NewPagination(1, 2)
	casinos, err := repo.List(ctx, p)
	require.NoError(t, err)
	assert.Len(t, casinos, 2)
	assert.Equal(t, int64(3), p.Total)

	require.NoError(t, repo.Delete(ctx, casinos[0].ID))
	_, err = repo.GetByID(ctx, casinos[0].ID)
	assert.True(t, apperrors.Is(err, apperrors.ErrCasinoNotFound))

	err = repo.Delete(ctx, casinos[0].ID)
	assert.True(t, apperrors.Is(err, apperrors.ErrCasinoNotFound))
}

func TestCachedCasinoRepository(t *testing.T) {
	db := SetupTestDB(t)
	inner := NewCasinoRepository(db)
	repo := NewCachedCasinoRepository(inner, 8, time.Minute)
	ctx := context.Background()

	casino := CreateTestCasino("缓存")
	require.NoError(t, repo.Create(ctx, casino))

	first, err := repo.GetByID(ctx, casino.ID)
	require.NoError(t, err)
	assert.Equal(t, "缓存", first.Name)

	// 绕过缓存直接改库，缓存命中时仍是旧值
	require.NoError(t, db.Exec("UPDATE casinos SET name = ? WHERE id = ?", "直改", casino.ID).Error)
	cached, err := repo.GetByID(ctx, casino.ID)
	require.NoError(t, err)
	assert.Equal(t, "缓存", cached.Name)

	// 通过仓储更新会失效缓存
	casino.Name = "新名字"
	require.NoError(t, repo.Update(ctx, casino))
	fresh, err := repo.GetByID(ctx, casino.ID)
	require.NoError(t, err)
	assert.Equal(t, "新名字", fresh.Name)

	require.NoError(t, repo.Delete(ctx, casino.ID))
	_, err = repo.GetByID(ctx, casino.ID)
	assert.True(t, apperrors.Is(err, apperrors.ErrCasinoNotFound))
}

func TestPagination(t *testing.T) {
	tests := []struct {
		page, size int
		wantPage   int
		wantSize   int
		wantOffset int
	}{
		{0, 0, 1, 10, 0},
		{2, 20, 2, 20, 20},
		{3, 500, 3, 100, 200},
	}
	for _, tt := range tests {
		p := NewPagination(tt.page, tt.size)
		assert.Equal(t, tt.wantPage, p.Page)
		assert.Equal(t, tt.wantSize, p.PageSize)
		assert.Equal(t, tt.wantOffset, p.Offset())
	}
}
