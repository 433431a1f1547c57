// Package transform converts checkpointed raw records into canonical
// entity drafts, resolving identities through the shared identity map.
package transform

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/yeshinnorbu/claw/internal/clock"
	"github.com/yeshinnorbu/claw/internal/entity"
	"github.com/yeshinnorbu/claw/internal/identity"
	"github.com/yeshinnorbu/claw/internal/normalize"
	"go.uber.org/zap"
)

// migratedPasswordHash marks accounts carried over from WordPress; every
// migrated user must reset their password on first login.
const migratedPasswordHash = "NEEDS_RESET"

var orderStatus = map[string]string{
	"completed":  "confirmed",
	"processing": "confirmed",
	"on-hold":    "pending",
	"pending":    "pending",
	"cancelled":  "cancelled",
	"refunded":   "refunded",
	"failed":     "failed",
	"trash":      "cancelled",
}

var membershipStatus = map[string]string{
	"active":         "active",
	"on-hold":        "paused",
	"cancelled":      "cancelled",
	"expired":        "expired",
	"pending-cancel": "cancelled",
}

type Transformer struct {
	ids   *identity.Map
	clock clock.Clock
	log   *zap.Logger
}

func New(ids *identity.Map, clk clock.Clock, log *zap.Logger) *Transformer {
	return &Transformer{
		ids:   ids,
		clock: clk,
		log:   log.Named("transform"),
	}
}

func decode[T any](t *Transformer, kind entity.Kind, raw json.RawMessage) (*T, bool) {
	var payload T
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.log.Warn("undecodable source record skipped",
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
		return nil, false
	}
	return &payload, true
}

// Users builds user drafts from the WooCommerce customers feed. Identity is
// the normalized email: the first occurrence of an email allocates the
// canonical identifier, every later occurrence merges into that draft
// instead of producing a second one.
func (t *Transformer) Users(records []json.RawMessage) []*entity.User {
	var users []*entity.User
	byID := make(map[string]*entity.User)

	for _, raw := range records {
		c, ok := decode[WCCustomer](t, entity.KindUser, raw)
		if !ok {
			continue
		}
		email := normalize.Email(c.Email)
		if email == "" {
			continue
		}

		id, _ := t.ids.ResolveUser(email)
		created := normalize.ParseTime(c.DateCreated)
		if created == nil {
			now := t.clock.Now()
			created = &now
		}

		if existing, dup := byID[id.String()]; dup {
			mergeUser(existing, c)
			continue
		}

		u := &entity.User{
			ID:           id,
			Email:        email,
			PasswordHash: migratedPasswordHash,
			FirstName:    normalize.CleanHTML(c.FirstName),
			LastName:     normalize.CleanHTML(c.LastName),
			Locale:       "sv",
			CreatedAt:    *created,
			UpdatedAt:    *created,
		}
		if c.Billing != nil && c.Billing.Phone != "" {
			phone := c.Billing.Phone
			u.Phone = &phone
		}
		byID[id.String()] = u
		users = append(users, u)
	}
	return users
}

func mergeUser(u *entity.User, c *WCCustomer) {
	if u.FirstName == "" {
		u.FirstName = normalize.CleanHTML(c.FirstName)
	}
	if u.LastName == "" {
		u.LastName = normalize.CleanHTML(c.LastName)
	}
	if u.Phone == nil && c.Billing != nil && c.Billing.Phone != "" {
		phone := c.Billing.Phone
		u.Phone = &phone
	}
}

// Categories collects the unique event categories embedded in the events
// feed, keyed by slug.
func (t *Transformer) Categories(eventRecords []json.RawMessage) []*entity.EventCategory {
	var cats []*entity.EventCategory
	seen := make(map[string]struct{})

	for _, raw := range eventRecords {
		e, ok := decode[TribeEvent](t, entity.KindEventCategory, raw)
		if !ok {
			continue
		}
		for _, c := range e.Categories {
			if c.Slug == "" {
				continue
			}
			if _, dup := seen[c.Slug]; dup {
				continue
			}
			seen[c.Slug] = struct{}{}

			name := normalize.CleanHTML(c.Name)
			if name == "" {
				name = c.Slug
			}
			cats = append(cats, &entity.EventCategory{
				ID:        t.ids.Resolve(entity.KindEventCategory, identity.NSCategory, c.Slug),
				Slug:      c.Slug,
				NameSv:    name,
				NameEn:    name,
				CreatedAt: t.clock.Now(),
			})
		}
	}
	return cats
}

// Plans builds membership plan drafts from the PMPro levels feed. The plan
// is also registered in the identity map under its slug so subscription
// drafts can resolve their plan reference.
func (t *Transformer) Plans(records []json.RawMessage) []*entity.MembershipPlan {
	var plans []*entity.MembershipPlan
	seen := make(map[string]struct{})

	for _, raw := range records {
		lv, ok := decode[PMProLevel](t, entity.KindMembershipPlan, raw)
		if !ok {
			continue
		}
		levelID := lv.ID.String()
		id := t.ids.Resolve(entity.KindMembershipPlan, identity.NSPlan, levelID)

		nameSv, nameEn := normalize.LocalePair(lv.Name)
		slug := normalize.Slugify(nameSv)
		if slug == "" {
			slug = fmt.Sprintf("plan-%s", levelID)
		}
		if _, dup := seen[slug]; dup {
			slug = fmt.Sprintf("%s-%s", slug, levelID)
		}
		seen[slug] = struct{}{}
		t.ids.Put(entity.KindMembershipPlan, slug, id)

		interval := 12
		if n, err := strconv.Atoi(lv.CycleNumber.String()); err == nil && n > 0 {
			interval = n
		}
		descSv, descEn := normalize.LocalePair(lv.Description)

		plans = append(plans, &entity.MembershipPlan{
			ID:             id,
			Slug:           slug,
			NameSv:         nameSv,
			NameEn:         nameEn,
			DescriptionSv:  descSv,
			DescriptionEn:  descEn,
			PriceSek:       normalize.ParseAmount(lv.InitialPayment.String()),
			IntervalMonths: interval,
			Active:         true,
			CreatedAt:      t.clock.Now(),
		})
	}
	return plans
}

// Events builds event drafts. A slug collision inside the batch is
// disambiguated with the source event id; the category reference is looked
// up by slug and left null when unresolved.
func (t *Transformer) Events(records []json.RawMessage) []*entity.Event {
	var events []*entity.Event
	seen := make(map[string]struct{})

	for _, raw := range records {
		e, ok := decode[TribeEvent](t, entity.KindEvent, raw)
		if !ok {
			continue
		}

		titleSv, titleEn := normalize.LocalePair(e.Title)
		slug := e.Slug
		if slug == "" {
			slug = normalize.Slugify(titleSv)
		}
		if slug == "" {
			slug = fmt.Sprintf("event-%d", e.ID)
		}
		if _, dup := seen[slug]; dup {
			slug = fmt.Sprintf("%s-%d", slug, e.ID)
		}
		seen[slug] = struct{}{}

		draft := &entity.Event{
			ID:        t.ids.Resolve(entity.KindEvent, identity.NSEvent, strconv.FormatInt(e.ID, 10)),
			Slug:      slug,
			TitleSv:   titleSv,
			TitleEn:   titleEn,
			IsOnline:  e.IsVirtual,
			Published: e.Status == "publish",
			CreatedAt: t.clock.Now(),
			UpdatedAt: t.clock.Now(),
		}
		draft.DescriptionSv, draft.DescriptionEn = normalize.LocalePair(e.Description)
		draft.Venue, draft.VenueAddress = e.VenueFields()
		draft.FeaturedImageURL = e.ImageURL()

		start := e.UTCStartDate
		if start == "" {
			start = e.StartDate
		}
		end := e.UTCEndDate
		if end == "" {
			end = e.EndDate
		}
		draft.StartsAt = normalize.ParseTime(start)
		draft.EndsAt = normalize.ParseTime(end)

		for _, c := range e.Categories {
			if id, found := t.ids.Lookup(entity.KindEventCategory, c.Slug); found {
				draft.CategoryID = &id
				break
			}
		}

		t.ids.Put(entity.KindEvent, slug, draft.ID)
		events = append(events, draft)
	}
	return events
}

// Products builds catalog drafts from the WooCommerce products feed.
func (t *Transformer) Products(records []json.RawMessage) []*entity.Product {
	var products []*entity.Product
	seen := make(map[string]struct{})

	for _, raw := range records {
		p, ok := decode[WCProduct](t, entity.KindProduct, raw)
		if !ok {
			continue
		}

		nameSv, nameEn := normalize.LocalePair(p.Name)
		slug := p.Slug
		if slug == "" {
			slug = normalize.Slugify(nameSv)
		}
		if slug == "" {
			slug = fmt.Sprintf("product-%d", p.ID)
		}
		if _, dup := seen[slug]; dup {
			slug = fmt.Sprintf("%s-%d", slug, p.ID)
		}
		seen[slug] = struct{}{}

		descSv, descEn := normalize.LocalePair(p.Description)
		draft := &entity.Product{
			ID:            t.ids.Resolve(entity.KindProduct, identity.NSProduct, strconv.FormatInt(p.ID, 10)),
			Slug:          slug,
			NameSv:        nameSv,
			NameEn:        nameEn,
			DescriptionSv: descSv,
			DescriptionEn: descEn,
			PriceSek:      normalize.ParseAmount(p.Price),
			Published:     p.Status == "publish",
			CreatedAt:     t.clock.Now(),
		}
		t.ids.Put(entity.KindProduct, slug, draft.ID)
		products = append(products, draft)
	}
	return products
}

// Memberships builds membership drafts from the WooCommerce subscriptions
// feed. User and plan references resolve through the identity map; an
// unresolved reference loads as null rather than dropping the draft.
func (t *Transformer) Memberships(records []json.RawMessage) []*entity.Membership {
	var memberships []*entity.Membership

	for _, raw := range records {
		s, ok := decode[WCSubscription](t, entity.KindMembership, raw)
		if !ok {
			continue
		}

		m := &entity.Membership{
			ID:     identity.Deterministic(identity.NSSubscription, strconv.FormatInt(s.ID, 10)),
			Status: "expired",
		}
		if st, known := membershipStatus[s.Status]; known {
			m.Status = st
		}

		if s.Billing != nil {
			if userID, found := t.ids.LookupUser(s.Billing.Email); found {
				m.UserID = &userID
			}
		}
		for _, item := range s.LineItems {
			if planID, found := t.ids.Lookup(entity.KindMembershipPlan, normalize.Slugify(item.Name)); found {
				m.PlanID = &planID
				break
			}
		}

		start := normalize.ParseTime(s.DateCreated)
		if start == nil {
			now := t.clock.Now()
			start = &now
		}
		end := normalize.ParseTime(s.NextPaymentDate)
		if end == nil {
			e := start.Add(365 * 24 * time.Hour)
			end = &e
		}
		m.CurrentPeriodStart = start
		m.CurrentPeriodEnd = end
		m.CreatedAt = *start
		m.UpdatedAt = *start

		memberships = append(memberships, m)
	}
	return memberships
}

// Orders builds order drafts. The user reference resolves by billing email
// and is null when the email matches no known user; the order still loads
// and still counts.
func (t *Transformer) Orders(records []json.RawMessage) []*entity.Order {
	var orders []*entity.Order

	for _, raw := range records {
		o, ok := decode[WCOrder](t, entity.KindOrder, raw)
		if !ok {
			continue
		}

		total := normalize.ParseAmount(o.Total)
		discount := normalize.ParseAmount(o.DiscountTotal)

		draft := &entity.Order{
			ID:          identity.Deterministic(identity.NSOrder, strconv.FormatInt(o.ID, 10)),
			Channel:     "online",
			Status:      "pending",
			TotalSek:    total,
			DiscountSek: discount,
			NetSek:      total - discount,
			Currency:    "SEK",
		}
		if st, known := orderStatus[o.Status]; known {
			draft.Status = st
		}
		if o.Billing != nil {
			if userID, found := t.ids.LookupUser(o.Billing.Email); found {
				draft.UserID = &userID
			}
		}

		created := normalize.ParseTime(o.DateCreated)
		if created == nil {
			now := t.clock.Now()
			created = &now
		}
		draft.CreatedAt = *created
		draft.UpdatedAt = *created

		orders = append(orders, draft)
	}
	return orders
}
