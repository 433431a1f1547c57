// Package verify is the read-only reconciliation pass run after loading:
// source counts against destination row counts, and reference-resolution
// quality per nullable foreign key, to flag silent degradation.
package verify

import (
	"context"
	"fmt"

	"github.com/yeshinnorbu/claw/internal/entity"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type KindCount struct {
	Kind     entity.Kind
	Expected int64
	Loaded   int64
}

type ReferenceQuality struct {
	Field    string
	Resolved int64
	Total    int64
}

// Ratio is resolved/total; 1 when there is nothing to resolve.
func (q ReferenceQuality) Ratio() float64 {
	if q.Total == 0 {
		return 1
	}
	return float64(q.Resolved) / float64(q.Total)
}

type Report struct {
	Counts     []KindCount
	References []ReferenceQuality
}

type Params struct {
	fx.In

	DB  *gorm.DB
	Log *zap.Logger
}

type Verifier struct {
	db  *gorm.DB
	log *zap.Logger
}

func New(p Params) *Verifier {
	return &Verifier{
		db:  p.DB,
		log: p.Log.Named("verify"),
	}
}

var countTargets = []struct {
	kind  entity.Kind
	model any
}{
	{entity.KindUser, &entity.User{}},
	{entity.KindEventCategory, &entity.EventCategory{}},
	{entity.KindMembershipPlan, &entity.MembershipPlan{}},
	{entity.KindEvent, &entity.Event{}},
	{entity.KindProduct, &entity.Product{}},
	{entity.KindMembership, &entity.Membership{}},
	{entity.KindOrder, &entity.Order{}},
}

var referenceTargets = []struct {
	field  string
	model  any
	column string
}{
	{"orders.user_id", &entity.Order{}, "user_id"},
	{"memberships.user_id", &entity.Membership{}, "user_id"},
	{"memberships.plan_id", &entity.Membership{}, "plan_id"},
	{"events.category_id", &entity.Event{}, "category_id"},
}

// Run builds the reconciliation report. expected carries the per-kind
// source record counts taken from the extraction checkpoints; a kind
// missing from the map reports Expected 0.
func (v *Verifier) Run(ctx context.Context, expected map[entity.Kind]int64) (*Report, error) {
	report := &Report{}

	for _, target := range countTargets {
		var loaded int64
		if err := v.db.WithContext(ctx).Model(target.model).Count(&loaded).Error; err != nil {
			return nil, fmt.Errorf("count %s: %w", target.kind, err)
		}
		report.Counts = append(report.Counts, KindCount{
			Kind:     target.kind,
			Expected: expected[target.kind],
			Loaded:   loaded,
		})
	}

	for _, target := range referenceTargets {
		var total, resolved int64
		if err := v.db.WithContext(ctx).Model(target.model).Count(&total).Error; err != nil {
			return nil, fmt.Errorf("count %s: %w", target.field, err)
		}
		if err := v.db.WithContext(ctx).Model(target.model).
			Where(target.column + " IS NOT NULL").
			Count(&resolved).Error; err != nil {
			return nil, fmt.Errorf("count resolved %s: %w", target.field, err)
		}
		report.References = append(report.References, ReferenceQuality{
			Field:    target.field,
			Resolved: resolved,
			Total:    total,
		})
	}

	v.logReport(report)
	return report, nil
}

func (v *Verifier) logReport(report *Report) {
	for _, c := range report.Counts {
		v.log.Info("count reconciliation",
			zap.String("kind", string(c.Kind)),
			zap.Int64("expected", c.Expected),
			zap.Int64("loaded", c.Loaded),
		)
	}
	for _, q := range report.References {
		v.log.Info("reference resolution quality",
			zap.String("field", q.Field),
			zap.Int64("resolved", q.Resolved),
			zap.Int64("total", q.Total),
			zap.Float64("ratio", q.Ratio()),
		)
	}
}
