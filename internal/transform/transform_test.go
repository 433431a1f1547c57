package transform

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeshinnorbu/claw/internal/clock"
	"github.com/yeshinnorbu/claw/internal/entity"
	"github.com/yeshinnorbu/claw/internal/identity"
	"go.uber.org/zap"
)

func newTransformer() (*Transformer, *identity.Map) {
	ids := identity.NewMap()
	clk := clock.NewFakeClock(time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC))
	return New(ids, clk, zap.NewNop()), ids
}

func raws(items ...string) []json.RawMessage {
	out := make([]json.RawMessage, len(items))
	for i, s := range items {
		out[i] = json.RawMessage(s)
	}
	return out
}

func TestUsers_UnifiesDuplicateEmails(t *testing.T) {
	tr, _ := newTransformer()

	users := tr.Users(raws(
		`{"id":1,"email":"Anna@x.se","first_name":"Anna","date_created":"2023-01-10T08:00:00"}`,
		`{"id":2,"email":"anna@x.se ","last_name":"Berg","billing":{"phone":"+46701234567"}}`,
		`{"id":3,"email":"","first_name":"ghost"}`,
		`{"id":4,"email":"ola@x.se","first_name":"Ola"}`,
	))

	require.Len(t, users, 2)
	anna := users[0]
	assert.Equal(t, "anna@x.se", anna.Email)
	assert.Equal(t, "Anna", anna.FirstName)
	assert.Equal(t, "Berg", anna.LastName, "later duplicate fills the missing field")
	if assert.NotNil(t, anna.Phone) {
		assert.Equal(t, "+46701234567", *anna.Phone)
	}
	assert.Equal(t, migratedPasswordHash, anna.PasswordHash)
	assert.Equal(t, "sv", anna.Locale)
	assert.Equal(t, time.Date(2023, 1, 10, 8, 0, 0, 0, time.UTC), anna.CreatedAt)
}

func TestUsers_UndecodableRecordSkipped(t *testing.T) {
	tr, _ := newTransformer()
	users := tr.Users(raws(`{"id":"broken`, `{"id":5,"email":"ok@x.se"}`))
	require.Len(t, users, 1)
	assert.Equal(t, "ok@x.se", users[0].Email)
}

func TestCategories_UniqueBySlug(t *testing.T) {
	tr, ids := newTransformer()

	cats := tr.Categories(raws(
		`{"id":1,"title":"A","categories":[{"id":9,"name":"Retreat","slug":"retreat"}]}`,
		`{"id":2,"title":"B","categories":[{"id":9,"name":"Retreat","slug":"retreat"},{"id":10,"name":"Kurs","slug":"kurs"}]}`,
	))

	require.Len(t, cats, 2)
	assert.Equal(t, "retreat", cats[0].Slug)
	assert.Equal(t, "kurs", cats[1].Slug)
	assert.Equal(t, identity.Deterministic(identity.NSCategory, "retreat"), cats[0].ID)
	assert.Equal(t, 2, ids.Len(entity.KindEventCategory))
}

func TestPlans_SlugRegisteredForSubscriptionLookup(t *testing.T) {
	tr, ids := newTransformer()

	plans := tr.Plans(raws(
		`{"id":1,"name":"Mentalgym Månadsvis","initial_payment":249,"cycle_number":1}`,
		`{"id":2,"name":"Mentalgym Årsvis","initial_payment":"2490","cycle_number":12}`,
	))

	require.Len(t, plans, 2)
	assert.Equal(t, "mentalgym-manadsvis", plans[0].Slug)
	assert.Equal(t, 249.0, plans[0].PriceSek)
	assert.Equal(t, 1, plans[0].IntervalMonths)
	assert.Equal(t, 12, plans[1].IntervalMonths)

	got, found := ids.Lookup(entity.KindMembershipPlan, "mentalgym-arsvis")
	assert.True(t, found)
	assert.Equal(t, plans[1].ID, got)
}

func TestPlans_DuplicateSlugDisambiguated(t *testing.T) {
	tr, _ := newTransformer()

	plans := tr.Plans(raws(
		`{"id":1,"name":"Medlem","initial_payment":0,"cycle_number":12}`,
		`{"id":2,"name":"Medlem","initial_payment":100,"cycle_number":12}`,
	))

	require.Len(t, plans, 2)
	assert.Equal(t, "medlem", plans[0].Slug)
	assert.Equal(t, "medlem-2", plans[1].Slug)
}

func TestEvents_ResolvesCategoryAndDates(t *testing.T) {
	tr, _ := newTransformer()
	tr.Categories(raws(`{"id":1,"categories":[{"name":"Retreat","slug":"retreat"}]}`))

	events := tr.Events(raws(
		`{"id":100,"title":"Höstretreat","slug":"hostretreat","status":"publish",
		  "utc_start_date":"2024-10-05 09:00:00","utc_end_date":"2024-10-06 16:00:00",
		  "venue":{"venue":"Skogsgården","address":"Skogsvägen 1"},
		  "image":{"url":"https://cdn.x.se/retreat.jpg"},
		  "categories":[{"name":"Retreat","slug":"retreat"}]}`,
		`{"id":101,"title":"Onlinekurs","status":"draft","is_virtual":true,
		  "venue":[],"image":false,"categories":[{"name":"Okänd","slug":"okand"}]}`,
	))

	require.Len(t, events, 2)
	first := events[0]
	assert.Equal(t, identity.Deterministic(identity.NSEvent, "100"), first.ID)
	assert.True(t, first.Published)
	assert.Equal(t, "Skogsgården", first.Venue)
	require.NotNil(t, first.CategoryID)
	assert.Equal(t, identity.Deterministic(identity.NSCategory, "retreat"), *first.CategoryID)
	require.NotNil(t, first.StartsAt)
	assert.Equal(t, time.Date(2024, 10, 5, 9, 0, 0, 0, time.UTC), *first.StartsAt)
	require.NotNil(t, first.FeaturedImageURL)

	second := events[1]
	assert.Equal(t, "onlinekurs", second.Slug)
	assert.True(t, second.IsOnline)
	assert.False(t, second.Published)
	assert.Nil(t, second.CategoryID, "unknown category loads as null")
	assert.Nil(t, second.StartsAt)
	assert.Nil(t, second.FeaturedImageURL)
}

func TestEvents_SlugCollisionWithinBatch(t *testing.T) {
	tr, _ := newTransformer()

	events := tr.Events(raws(
		`{"id":1,"title":"Meditation"}`,
		`{"id":2,"title":"Meditation"}`,
	))

	require.Len(t, events, 2)
	assert.Equal(t, "meditation", events[0].Slug)
	assert.Equal(t, "meditation-2", events[1].Slug)
}

func TestMemberships_NullableReferences(t *testing.T) {
	tr, ids := newTransformer()
	userID, _ := ids.ResolveUser("anna@x.se")
	tr.Plans(raws(`{"id":7,"name":"Mentalgym Årsvis","initial_payment":2490,"cycle_number":12}`))

	memberships := tr.Memberships(raws(
		`{"id":500,"status":"active","billing":{"email":"Anna@x.se"},
		  "date_created":"2024-01-01T00:00:00","next_payment_date":"2025-01-01T00:00:00",
		  "line_items":[{"name":"Mentalgym Årsvis"}]}`,
		`{"id":501,"status":"on-hold","billing":{"email":"stranger@x.se"},
		  "line_items":[{"name":"Okänd produkt"}]}`,
	))

	require.Len(t, memberships, 2)
	first := memberships[0]
	assert.Equal(t, identity.Deterministic(identity.NSSubscription, "500"), first.ID)
	assert.Equal(t, "active", first.Status)
	require.NotNil(t, first.UserID)
	assert.Equal(t, userID, *first.UserID)
	require.NotNil(t, first.PlanID)
	require.NotNil(t, first.CurrentPeriodEnd)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), *first.CurrentPeriodEnd)

	second := memberships[1]
	assert.Equal(t, "paused", second.Status)
	assert.Nil(t, second.UserID, "unknown email loads with a null user")
	assert.Nil(t, second.PlanID)
	require.NotNil(t, second.CurrentPeriodEnd)
	assert.Equal(t, second.CurrentPeriodStart.Add(365*24*time.Hour), *second.CurrentPeriodEnd)
}

func TestOrders_StatusMappingAndNet(t *testing.T) {
	tr, ids := newTransformer()
	userID, _ := ids.ResolveUser("anna@x.se")

	orders := tr.Orders(raws(
		`{"id":900,"status":"completed","total":"500.00","discount_total":"50.00",
		  "billing":{"email":"anna@x.se"},"date_created":"2024-06-01T10:00:00"}`,
		`{"id":901,"status":"weird","total":"100","billing":{"email":"nobody@x.se"}}`,
	))

	require.Len(t, orders, 2)
	first := orders[0]
	assert.Equal(t, identity.Deterministic(identity.NSOrder, "900"), first.ID)
	assert.Equal(t, "confirmed", first.Status)
	assert.Equal(t, 450.0, first.NetSek)
	assert.Equal(t, "SEK", first.Currency)
	require.NotNil(t, first.UserID)
	assert.Equal(t, userID, *first.UserID)

	second := orders[1]
	assert.Equal(t, "pending", second.Status, "unknown status falls back to pending")
	assert.Nil(t, second.UserID)
	assert.Equal(t, 100.0, second.NetSek)
}
