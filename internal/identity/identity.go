// Package identity assigns stable canonical identifiers to records coming
// out of the legacy feeds. The same external key always maps to the same
// identifier, across runs, so re-running the pipeline never creates
// duplicate rows.
package identity

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/yeshinnorbu/claw/internal/entity"
	"github.com/yeshinnorbu/claw/internal/normalize"
	"gorm.io/gorm"
)

// Namespace tags for deterministic identifiers, one per source family.
const (
	NSUser         = "wp_user"
	NSEvent        = "wp_event"
	NSCategory     = "wp_event_cat"
	NSPlan         = "pmpro_level"
	NSProduct      = "wc_product"
	NSOrder        = "wc_order"
	NSSubscription = "wc_subscription"
)

// Deterministic derives the canonical identifier for an external key:
// a UUIDv5 over "<namespace>_<externalID>". Independent runs and
// independent Map instances agree on the result without consulting the
// store.
func Deterministic(namespace, externalID string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte(fmt.Sprintf("%s_%s", namespace, externalID)))
}

// Map is the identity map shared by the transform phase: external key →
// canonical identifier, seeded from existing destination rows and extended
// as new drafts resolve. Allocation for a key is serialized by the mutex so
// concurrent resolution cannot allocate twice.
type Map struct {
	mu   sync.Mutex
	keys map[entity.Kind]map[string]uuid.UUID
}

func NewMap() *Map {
	return &Map{keys: make(map[entity.Kind]map[string]uuid.UUID)}
}

// Resolve returns the canonical identifier for (kind, key), allocating the
// deterministic identifier under namespace on first sight.
func (m *Map) Resolve(kind entity.Kind, namespace, key string) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()

	bucket := m.keys[kind]
	if bucket == nil {
		bucket = make(map[string]uuid.UUID)
		m.keys[kind] = bucket
	}
	if id, ok := bucket[key]; ok {
		return id
	}
	id := Deterministic(namespace, key)
	bucket[key] = id
	return id
}

// ResolveUser unifies users across feeds by normalized email. The first
// occurrence wins; later occurrences of the same email, from any feed,
// yield the existing identifier.
func (m *Map) ResolveUser(email string) (uuid.UUID, bool) {
	key := normalize.Email(email)
	if key == "" {
		return uuid.Nil, false
	}
	return m.Resolve(entity.KindUser, NSUser, key), true
}

// Lookup reports the identifier already assigned to (kind, key), without
// allocating. Dependent drafts use this for their reference fields: a miss
// is not an error, the reference loads as null.
func (m *Map) Lookup(kind entity.Kind, key string) (uuid.UUID, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.keys[kind][key]
	return id, ok
}

// LookupUser looks up a user by raw email, applying the same normalization
// as ResolveUser.
func (m *Map) LookupUser(email string) (uuid.UUID, bool) {
	return m.Lookup(entity.KindUser, normalize.Email(email))
}

// Put records an externally known assignment, e.g. a row read back from
// the destination store.
func (m *Map) Put(kind entity.Kind, key string, id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	bucket := m.keys[kind]
	if bucket == nil {
		bucket = make(map[string]uuid.UUID)
		m.keys[kind] = bucket
	}
	bucket[key] = id
}

// Len reports how many keys are mapped for a kind.
func (m *Map) Len(kind entity.Kind) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.keys[kind])
}

// Seed preloads the map from rows already committed to the destination
// store, so a re-run resolves to existing identifiers instead of
// re-allocating.
func (m *Map) Seed(ctx context.Context, db *gorm.DB) error {
	var users []entity.User
	if err := db.WithContext(ctx).Select("id", "email").Find(&users).Error; err != nil {
		return fmt.Errorf("seed users: %w", err)
	}
	for _, u := range users {
		m.Put(entity.KindUser, normalize.Email(u.Email), u.ID)
	}

	var plans []entity.MembershipPlan
	if err := db.WithContext(ctx).Select("id", "slug").Find(&plans).Error; err != nil {
		return fmt.Errorf("seed membership plans: %w", err)
	}
	for _, p := range plans {
		m.Put(entity.KindMembershipPlan, p.Slug, p.ID)
	}

	var cats []entity.EventCategory
	if err := db.WithContext(ctx).Select("id", "slug").Find(&cats).Error; err != nil {
		return fmt.Errorf("seed event categories: %w", err)
	}
	for _, c := range cats {
		m.Put(entity.KindEventCategory, c.Slug, c.ID)
	}

	var events []entity.Event
	if err := db.WithContext(ctx).Select("id", "slug").Find(&events).Error; err != nil {
		return fmt.Errorf("seed events: %w", err)
	}
	for _, e := range events {
		m.Put(entity.KindEvent, e.Slug, e.ID)
	}

	var products []entity.Product
	if err := db.WithContext(ctx).Select("id", "slug").Find(&products).Error; err != nil {
		return fmt.Errorf("seed products: %w", err)
	}
	for _, p := range products {
		m.Put(entity.KindProduct, p.Slug, p.ID)
	}

	return nil
}
