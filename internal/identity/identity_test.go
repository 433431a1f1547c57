package identity

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeshinnorbu/claw/internal/entity"
	"gorm.io/gorm"
)

func TestDeterministic_StableAcrossRuns(t *testing.T) {
	a := Deterministic(NSEvent, "123")
	b := Deterministic(NSEvent, "123")
	assert.Equal(t, a, b)

	assert.NotEqual(t, a, Deterministic(NSEvent, "124"))
	assert.NotEqual(t, a, Deterministic(NSProduct, "123"))
}

func TestResolve_IndependentMapsAgree(t *testing.T) {
	m1 := NewMap()
	m2 := NewMap()

	id1 := m1.Resolve(entity.KindEvent, NSEvent, "55")
	id2 := m2.Resolve(entity.KindEvent, NSEvent, "55")
	assert.Equal(t, id1, id2)
}

func TestResolveUser_UnifiesAcrossFeeds(t *testing.T) {
	m := NewMap()

	first, ok := m.ResolveUser("A@x.com")
	require.True(t, ok)
	second, ok := m.ResolveUser("a@x.com ")
	require.True(t, ok)
	assert.Equal(t, first, second)

	_, ok = m.ResolveUser("  ")
	assert.False(t, ok)
}

func TestLookup_MissIsNotAnError(t *testing.T) {
	m := NewMap()
	_, found := m.Lookup(entity.KindMembershipPlan, "unknown-plan")
	assert.False(t, found)

	id := m.Resolve(entity.KindMembershipPlan, NSPlan, "7")
	m.Put(entity.KindMembershipPlan, "mental-gym-monthly", id)

	got, found := m.Lookup(entity.KindMembershipPlan, "mental-gym-monthly")
	assert.True(t, found)
	assert.Equal(t, id, got)
}

func TestResolve_ConcurrentAllocationIsSerialized(t *testing.T) {
	m := NewMap()
	results := make([]uuid.UUID, 50)

	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = m.Resolve(entity.KindUser, NSUser, "same@x.com")
		}(i)
	}
	wg.Wait()

	for _, id := range results {
		assert.Equal(t, results[0], id)
	}
	assert.Equal(t, 1, m.Len(entity.KindUser))
}

func TestSeed_PrefersExistingRows(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(entity.All()...))

	// Row created by the web platform, not by this pipeline: its id is not
	// the deterministic one.
	existing := uuid.New()
	require.NoError(t, conn.Create(&entity.User{
		ID:           existing,
		Email:        "ada@x.com",
		PasswordHash: "hash",
	}).Error)
	require.NoError(t, conn.Create(&entity.MembershipPlan{
		ID:       uuid.New(),
		Slug:     "supporter",
		NameSv:   "Stödjare",
		NameEn:   "Supporter",
		PriceSek: 0, IntervalMonths: 12,
	}).Error)

	m := NewMap()
	require.NoError(t, m.Seed(context.Background(), conn))

	got, ok := m.ResolveUser("Ada@x.com")
	assert.True(t, ok)
	assert.Equal(t, existing, got, "seeded identity wins over deterministic allocation")

	_, found := m.Lookup(entity.KindMembershipPlan, "supporter")
	assert.True(t, found)
}
