package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apu-code-collab/apcc-api/internal/domain"
)

func TestCatalogCreate(t *testing.T) {
	env := newTestEnv()
	svc := NewCatalogService(env.repos.Frameworks, env.audit)
	ctx := context.Background()
	adminID := uuid.New()

	fw, err := svc.Create(ctx, "Django", adminID)
	require.NoError(t, err)
	assert.Equal(t, "Django", fw.Name)
	require.NotNil(t, fw.AddedBy)
	assert.Equal(t, adminID, *fw.AddedBy)

	_, err = svc.Create(ctx, "django", adminID)
	requireCode(t, err, http.StatusConflict, domain.CodeConflict)

	n, err := svc.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.Equal(t, []domain.AuditAction{domain.ActionCreated}, env.audit.actions())
	assert.Equal(t, domain.EntityFramework, env.audit.entries[0].EntityType)
}

func TestCatalogRename(t *testing.T) {
	env := newTestEnv()
	svc := NewCatalogService(env.repos.ProgrammingLanguages, env.audit)
	ctx := context.Background()

	goLang, err := svc.Create(ctx, "Go", uuid.Nil)
	require.NoError(t, err)
	assert.Nil(t, goLang.AddedBy)
	_, err = svc.Create(ctx, "Rust", uuid.Nil)
	require.NoError(t, err)

	t.Run("same name different case", func(t *testing.T) {
		renamed, err := svc.Rename(ctx, goLang.ID, "GO", uuid.Nil)
		require.NoError(t, err)
		assert.Equal(t, "GO", renamed.Name)
	})

	t.Run("taken by another entry", func(t *testing.T) {
		_, err := svc.Rename(ctx, goLang.ID, "rust", uuid.Nil)
		requireCode(t, err, http.StatusConflict, domain.CodeConflict)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := svc.Rename(ctx, uuid.New(), "Zig", uuid.Nil)
		requireCode(t, err, http.StatusNotFound, domain.CodeNotFound)
	})
}

func TestCatalogDelete(t *testing.T) {
	env := newTestEnv()
	svc := NewCatalogService(env.repos.Frameworks, env.audit)
	ctx := context.Background()

	fw, err := svc.Create(ctx, "Flask", uuid.Nil)
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, fw.ID, uuid.Nil))

	err = svc.Delete(ctx, fw.ID, uuid.Nil)
	requireCode(t, err, http.StatusNotFound, domain.CodeNotFound)

	_, err = svc.Get(ctx, fw.ID)
	requireCode(t, err, http.StatusNotFound, domain.CodeNotFound)
}

func TestSeederIsIdempotent(t *testing.T) {
	env := newTestEnv()
	seeder := NewSeeder(env.repos)
	ctx := context.Background()

	first, err := seeder.Run(ctx, SeedAll)
	require.NoError(t, err)
	require.Len(t, first, 3)
	for _, res := range first {
		assert.Positive(t, res.Added, res.Target)
		assert.Zero(t, res.Skipped, res.Target)
	}

	second, err := seeder.Run(ctx, SeedFrameworks)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Zero(t, second[0].Added)
	assert.Equal(t, first[1].Added, second[0].Skipped)

	_, err = seeder.Run(ctx, "nope")
	assert.Error(t, err)
}
