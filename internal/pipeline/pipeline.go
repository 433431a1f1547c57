// Package pipeline wires the extract → transform → resolve → load → verify
// phases together. Each phase is independently invocable and safe to
// re-run: identity is deterministic and loads are idempotent upserts, so a
// cancelled run followed by a fresh one cannot create duplicates.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/yeshinnorbu/claw/internal/clock"
	"github.com/yeshinnorbu/claw/internal/config"
	"github.com/yeshinnorbu/claw/internal/entity"
	"github.com/yeshinnorbu/claw/internal/identity"
	"github.com/yeshinnorbu/claw/internal/loader"
	"github.com/yeshinnorbu/claw/internal/source"
	"github.com/yeshinnorbu/claw/internal/transform"
	"github.com/yeshinnorbu/claw/internal/verify"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Cfg         config.Config
	Log         *zap.Logger
	DB          *gorm.DB
	Checkpoints *source.CheckpointStore
	Loader      *loader.Loader
	Verifier    *verify.Verifier
	Clock       clock.Clock
}

type Pipeline struct {
	cfg         config.Config
	log         *zap.Logger
	db          *gorm.DB
	checkpoints *source.CheckpointStore
	loader      *loader.Loader
	verifier    *verify.Verifier
	clock       clock.Clock
	ids         *identity.Map
}

func New(p Params) *Pipeline {
	return &Pipeline{
		cfg:         p.Cfg,
		log:         p.Log.Named("pipeline"),
		db:          p.DB,
		checkpoints: p.Checkpoints,
		loader:      p.Loader,
		verifier:    p.Verifier,
		clock:       p.Clock,
		ids:         identity.NewMap(),
	}
}

// records loads a checkpoint, treating a missing artifact as an empty feed
// so phases stay independently runnable.
func (p *Pipeline) records(name string) []json.RawMessage {
	cp, err := p.checkpoints.Load(name)
	if err != nil {
		if os.IsNotExist(err) {
			p.log.Warn("checkpoint missing, treating endpoint as empty", zap.String("endpoint", name))
			return nil
		}
		p.log.Warn("checkpoint unreadable, treating endpoint as empty",
			zap.String("endpoint", name), zap.Error(err))
		return nil
	}
	return cp.Records
}

// LoadCore runs the dependency-ordered load of users, categories, plans,
// events, memberships and orders from the persisted checkpoints. Writes
// for a tier commit before any dependent tier starts, because dependents
// resolve foreign keys against committed rows.
func (p *Pipeline) LoadCore(ctx context.Context) ([]*loader.Summary, error) {
	if err := p.ids.Seed(ctx, p.db); err != nil {
		return nil, fmt.Errorf("seed identity map: %w", err)
	}

	t := transform.New(p.ids, p.clock, p.log)

	customers := p.records("wc_customers")
	events := p.records("events")
	levels := p.records("pmpro_levels")
	subscriptions := p.records("wc_subscriptions")
	orders := p.records("wc_orders")

	// Independent drafts resolve in parallel; the identity map serializes
	// identifier allocation internally.
	var users []*entity.User
	var cats []*entity.EventCategory
	var plans []*entity.MembershipPlan

	var wg sync.WaitGroup
	wg.Add(3)
	go func() { defer wg.Done(); users = t.Users(customers) }()
	go func() { defer wg.Done(); cats = t.Categories(events) }()
	go func() { defer wg.Done(); plans = t.Plans(levels) }()
	wg.Wait()

	// Dependent drafts need the user/plan/category keys above.
	var eventDrafts []*entity.Event
	var membershipDrafts []*entity.Membership
	var orderDrafts []*entity.Order

	wg.Add(3)
	go func() { defer wg.Done(); eventDrafts = t.Events(events) }()
	go func() { defer wg.Done(); membershipDrafts = t.Memberships(subscriptions) }()
	go func() { defer wg.Done(); orderDrafts = t.Orders(orders) }()
	wg.Wait()

	var summaries []*loader.Summary

	// Tier 1: no references.
	summaries = append(summaries, p.loader.Categories(ctx, cats))
	summaries = append(summaries, p.loader.Plans(ctx, plans))

	// Tier 2: events reference categories.
	summaries = append(summaries, p.loader.Users(ctx, users))
	summaries = append(summaries, p.loader.Events(ctx, eventDrafts))

	// Tier 3: memberships and orders reference users and plans.
	summaries = append(summaries, p.loader.Memberships(ctx, membershipDrafts))
	summaries = append(summaries, p.loader.Orders(ctx, orderDrafts))

	return summaries, nil
}

// LoadCatalog loads the product catalog from the wc_products checkpoint.
func (p *Pipeline) LoadCatalog(ctx context.Context) (*loader.Summary, error) {
	if err := p.ids.Seed(ctx, p.db); err != nil {
		return nil, fmt.Errorf("seed identity map: %w", err)
	}

	t := transform.New(p.ids, p.clock, p.log)
	products := t.Products(p.records("wc_products"))
	return p.loader.Products(ctx, products), nil
}

// Verify reconciles checkpoint counts against destination row counts and
// reports reference-resolution quality. Read-only.
func (p *Pipeline) Verify(ctx context.Context) (*verify.Report, error) {
	expected := map[entity.Kind]int64{
		entity.KindUser:           int64(p.checkpoints.Count("wc_customers")),
		entity.KindEvent:          int64(p.checkpoints.Count("events")),
		entity.KindMembershipPlan: int64(p.checkpoints.Count("pmpro_levels")),
		entity.KindMembership:     int64(p.checkpoints.Count("wc_subscriptions")),
		entity.KindOrder:          int64(p.checkpoints.Count("wc_orders")),
		entity.KindProduct:        int64(p.checkpoints.Count("wc_products")),
		entity.KindEventCategory:  p.expectedCategories(),
	}
	return p.verifier.Run(ctx, expected)
}

// expectedCategories counts the distinct category slugs embedded in the
// events checkpoint; categories have no endpoint checkpoint of their own
// in the core load.
func (p *Pipeline) expectedCategories() int64 {
	seen := make(map[string]struct{})
	for _, raw := range p.records("events") {
		var e transform.TribeEvent
		if err := json.Unmarshal(raw, &e); err != nil {
			continue
		}
		for _, c := range e.Categories {
			if c.Slug != "" {
				seen[c.Slug] = struct{}{}
			}
		}
	}
	return int64(len(seen))
}
