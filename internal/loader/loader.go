// Package loader writes resolved drafts into the destination store in
// dependency order. Loads are idempotent: a unique-key collision merges
// non-null fields into the existing row instead of inserting a duplicate,
// so re-running a phase never grows the tables.
package loader

import (
	"context"

	"github.com/yeshinnorbu/claw/internal/config"
	"github.com/yeshinnorbu/claw/internal/entity"
	"github.com/yeshinnorbu/claw/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB  *gorm.DB
	Log *zap.Logger
	Cfg config.Config
}

type Loader struct {
	db        *gorm.DB
	log       *zap.Logger
	batchSize int
}

func New(p Params) *Loader {
	return &Loader{
		db:        p.DB,
		log:       p.Log.Named("loader"),
		batchSize: p.Cfg.BatchSize,
	}
}

// Users loads user drafts one at a time, each in its own transaction. A
// duplicate email merges into the existing row.
func (l *Loader) Users(ctx context.Context, drafts []*entity.User) *Summary {
	sum := newSummary(entity.KindUser)
	for _, u := range drafts {
		err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return tx.Create(u).Error
		})
		switch {
		case err == nil:
			sum.Inserted++
		case db.IsDuplicateKeyErr(err):
			if mergeErr := l.mergeUser(ctx, u); mergeErr != nil {
				sum.fail(u.Email, mergeErr)
			} else {
				sum.Updated++
			}
		default:
			sum.fail(u.Email, err)
		}
	}
	l.logSummary(sum)
	return sum
}

func (l *Loader) mergeUser(ctx context.Context, u *entity.User) error {
	updates := map[string]any{"updated_at": u.UpdatedAt}
	if u.FirstName != "" {
		updates["first_name"] = u.FirstName
	}
	if u.LastName != "" {
		updates["last_name"] = u.LastName
	}
	if u.Phone != nil {
		updates["phone"] = *u.Phone
	}
	if u.ConsentMarketingAt != nil {
		updates["consent_marketing"] = true
		updates["consent_marketing_at"] = *u.ConsentMarketingAt
	}
	return l.db.WithContext(ctx).
		Model(&entity.User{}).
		Where("email = ?", u.Email).
		Updates(updates).Error
}

// Categories loads event categories; an existing slug is left untouched
// (the feed carries no fields worth merging beyond the names).
func (l *Loader) Categories(ctx context.Context, drafts []*entity.EventCategory) *Summary {
	sum := newSummary(entity.KindEventCategory)
	for _, c := range drafts {
		err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return tx.Create(c).Error
		})
		switch {
		case err == nil:
			sum.Inserted++
		case db.IsDuplicateKeyErr(err):
			sum.Skipped++
		default:
			sum.fail(c.Slug, err)
		}
	}
	l.logSummary(sum)
	return sum
}

// Plans loads membership plans with merge-on-collision by slug.
func (l *Loader) Plans(ctx context.Context, drafts []*entity.MembershipPlan) *Summary {
	sum := newSummary(entity.KindMembershipPlan)
	for _, p := range drafts {
		err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return tx.Create(p).Error
		})
		switch {
		case err == nil:
			sum.Inserted++
		case db.IsDuplicateKeyErr(err):
			updates := map[string]any{
				"name_sv":         p.NameSv,
				"name_en":         p.NameEn,
				"price_sek":       p.PriceSek,
				"interval_months": p.IntervalMonths,
			}
			if p.DescriptionSv != "" {
				updates["description_sv"] = p.DescriptionSv
				updates["description_en"] = p.DescriptionEn
			}
			if mergeErr := l.db.WithContext(ctx).
				Model(&entity.MembershipPlan{}).
				Where("slug = ?", p.Slug).
				Updates(updates).Error; mergeErr != nil {
				sum.fail(p.Slug, mergeErr)
			} else {
				sum.Updated++
			}
		default:
			sum.fail(p.Slug, err)
		}
	}
	l.logSummary(sum)
	return sum
}

// Events loads event drafts with merge-on-collision by slug.
func (l *Loader) Events(ctx context.Context, drafts []*entity.Event) *Summary {
	sum := newSummary(entity.KindEvent)
	for _, e := range drafts {
		err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return tx.Create(e).Error
		})
		switch {
		case err == nil:
			sum.Inserted++
		case db.IsDuplicateKeyErr(err):
			if mergeErr := l.mergeEvent(ctx, e); mergeErr != nil {
				sum.fail(e.Slug, mergeErr)
			} else {
				sum.Updated++
			}
		default:
			sum.fail(e.Slug, err)
		}
	}
	l.logSummary(sum)
	return sum
}

func (l *Loader) mergeEvent(ctx context.Context, e *entity.Event) error {
	updates := map[string]any{
		"title_sv":   e.TitleSv,
		"title_en":   e.TitleEn,
		"is_online":  e.IsOnline,
		"published":  e.Published,
		"updated_at": e.UpdatedAt,
	}
	if e.DescriptionSv != "" {
		updates["description_sv"] = e.DescriptionSv
		updates["description_en"] = e.DescriptionEn
	}
	if e.CategoryID != nil {
		updates["category_id"] = *e.CategoryID
	}
	if e.StartsAt != nil {
		updates["starts_at"] = *e.StartsAt
	}
	if e.EndsAt != nil {
		updates["ends_at"] = *e.EndsAt
	}
	if e.Venue != "" {
		updates["venue"] = e.Venue
		updates["venue_address"] = e.VenueAddress
	}
	if e.FeaturedImageURL != nil {
		updates["featured_image_url"] = *e.FeaturedImageURL
	}
	return l.db.WithContext(ctx).
		Model(&entity.Event{}).
		Where("slug = ?", e.Slug).
		Updates(updates).Error
}

// Products loads catalog drafts with merge-on-collision by slug.
func (l *Loader) Products(ctx context.Context, drafts []*entity.Product) *Summary {
	sum := newSummary(entity.KindProduct)
	for _, p := range drafts {
		err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return tx.Create(p).Error
		})
		switch {
		case err == nil:
			sum.Inserted++
		case db.IsDuplicateKeyErr(err):
			updates := map[string]any{
				"name_sv":   p.NameSv,
				"name_en":   p.NameEn,
				"price_sek": p.PriceSek,
				"published": p.Published,
			}
			if p.DescriptionSv != "" {
				updates["description_sv"] = p.DescriptionSv
				updates["description_en"] = p.DescriptionEn
			}
			if mergeErr := l.db.WithContext(ctx).
				Model(&entity.Product{}).
				Where("slug = ?", p.Slug).
				Updates(updates).Error; mergeErr != nil {
				sum.fail(p.Slug, mergeErr)
			} else {
				sum.Updated++
			}
		default:
			sum.fail(p.Slug, err)
		}
	}
	l.logSummary(sum)
	return sum
}

// Memberships load per record; the deterministic primary key makes a
// re-run collide on id, which updates status and period instead.
func (l *Loader) Memberships(ctx context.Context, drafts []*entity.Membership) *Summary {
	sum := newSummary(entity.KindMembership)
	for _, m := range drafts {
		err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return tx.Create(m).Error
		})
		switch {
		case err == nil:
			sum.Inserted++
		case db.IsDuplicateKeyErr(err):
			updates := map[string]any{
				"status":     m.Status,
				"updated_at": m.UpdatedAt,
			}
			if m.UserID != nil {
				updates["user_id"] = *m.UserID
			}
			if m.PlanID != nil {
				updates["plan_id"] = *m.PlanID
			}
			if m.CurrentPeriodStart != nil {
				updates["current_period_start"] = *m.CurrentPeriodStart
			}
			if m.CurrentPeriodEnd != nil {
				updates["current_period_end"] = *m.CurrentPeriodEnd
			}
			if mergeErr := l.db.WithContext(ctx).
				Model(&entity.Membership{}).
				Where("id = ?", m.ID).
				Updates(updates).Error; mergeErr != nil {
				sum.fail(m.ID.String(), mergeErr)
			} else {
				sum.Updated++
			}
		default:
			sum.fail(m.ID.String(), err)
		}
	}
	l.logSummary(sum)
	return sum
}

// Orders bulk-insert in fixed-size batches, one transaction per batch. A
// failing batch rolls back alone and is retried row by row, so a single
// bad record cannot take down its batch mates.
func (l *Loader) Orders(ctx context.Context, drafts []*entity.Order) *Summary {
	sum := newSummary(entity.KindOrder)

	for start := 0; start < len(drafts); start += l.batchSize {
		end := start + l.batchSize
		if end > len(drafts) {
			end = len(drafts)
		}
		chunk := drafts[start:end]

		err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return tx.Create(chunk).Error
		})
		if err == nil {
			sum.Inserted += len(chunk)
			continue
		}

		l.log.Warn("order batch failed, retrying rows individually",
			zap.Int("batch_start", start),
			zap.Int("batch_size", len(chunk)),
			zap.Error(err),
		)
		for _, o := range chunk {
			rowErr := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
				return tx.Create(o).Error
			})
			switch {
			case rowErr == nil:
				sum.Inserted++
			case db.IsDuplicateKeyErr(rowErr):
				if mergeErr := l.mergeOrder(ctx, o); mergeErr != nil {
					sum.fail(o.ID.String(), mergeErr)
				} else {
					sum.Updated++
				}
			default:
				sum.fail(o.ID.String(), rowErr)
			}
		}
	}
	l.logSummary(sum)
	return sum
}

func (l *Loader) mergeOrder(ctx context.Context, o *entity.Order) error {
	updates := map[string]any{
		"status":       o.Status,
		"total_sek":    o.TotalSek,
		"discount_sek": o.DiscountSek,
		"net_sek":      o.NetSek,
		"updated_at":   o.UpdatedAt,
	}
	if o.UserID != nil {
		updates["user_id"] = *o.UserID
	}
	return l.db.WithContext(ctx).
		Model(&entity.Order{}).
		Where("id = ?", o.ID).
		Updates(updates).Error
}

func (l *Loader) logSummary(sum *Summary) {
	l.log.Info("load phase finished",
		zap.String("kind", string(sum.Kind)),
		zap.Int("inserted", sum.Inserted),
		zap.Int("updated", sum.Updated),
		zap.Int("skipped", sum.Skipped),
		zap.Int("failed", sum.Failed),
	)
	for _, reason := range sum.Failures {
		l.log.Warn("record failed", zap.String("kind", string(sum.Kind)), zap.String("reason", reason))
	}
}
