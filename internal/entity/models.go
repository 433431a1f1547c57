package entity

import (
	"time"

	"github.com/google/uuid"
)

// Kind identifies a canonical entity family in the destination store.
type Kind string

const (
	KindUser           Kind = "user"
	KindEventCategory  Kind = "event_category"
	KindEvent          Kind = "event"
	KindMembershipPlan Kind = "membership_plan"
	KindMembership     Kind = "membership"
	KindOrder          Kind = "order"
	KindProduct        Kind = "product"
)

// User is keyed by normalized email across every source feed.
type User struct {
	ID                 uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Email              string     `gorm:"size:320;not null;uniqueIndex:users_email_idx" json:"email"`
	EmailVerified      bool       `gorm:"not null;default:false" json:"email_verified"`
	PasswordHash       string     `gorm:"not null" json:"-"`
	FirstName          string     `gorm:"size:100;not null" json:"first_name"`
	LastName           string     `gorm:"size:100;not null" json:"last_name"`
	Phone              *string    `gorm:"size:20" json:"phone,omitempty"`
	Locale             string     `gorm:"size:5;not null;default:sv" json:"locale"`
	ConsentMarketing   bool       `gorm:"not null;default:false" json:"consent_marketing"`
	ConsentMarketingAt *time.Time `json:"consent_marketing_at,omitempty"`
	ConsentAnalytics   bool       `gorm:"not null;default:false" json:"consent_analytics"`
	ConsentAnalyticsAt *time.Time `json:"consent_analytics_at,omitempty"`
	CreatedAt          time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt          time.Time  `gorm:"not null" json:"updated_at"`
}

func (User) TableName() string { return "users" }

type EventCategory struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Slug      string    `gorm:"size:100;not null;uniqueIndex:event_categories_slug_idx" json:"slug"`
	NameSv    string    `gorm:"size:200;not null" json:"name_sv"`
	NameEn    string    `gorm:"size:200;not null" json:"name_en"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (EventCategory) TableName() string { return "event_categories" }

type Event struct {
	ID               uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Slug             string     `gorm:"size:300;not null;uniqueIndex:events_slug_idx" json:"slug"`
	TitleSv          string     `gorm:"size:500;not null" json:"title_sv"`
	TitleEn          string     `gorm:"size:500;not null" json:"title_en"`
	DescriptionSv    string     `gorm:"type:text" json:"description_sv"`
	DescriptionEn    string     `gorm:"type:text" json:"description_en"`
	CategoryID       *uuid.UUID `gorm:"type:uuid;index" json:"category_id,omitempty"`
	StartsAt         *time.Time `gorm:"index:events_starts_at_idx" json:"starts_at,omitempty"`
	EndsAt           *time.Time `json:"ends_at,omitempty"`
	Venue            string     `gorm:"size:500" json:"venue"`
	VenueAddress     string     `gorm:"type:text" json:"venue_address"`
	IsOnline         bool       `gorm:"not null;default:false" json:"is_online"`
	FeaturedImageURL *string    `json:"featured_image_url,omitempty"`
	Published        bool       `gorm:"not null;default:false" json:"published"`
	CreatedAt        time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"not null" json:"updated_at"`
}

func (Event) TableName() string { return "events" }

type MembershipPlan struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Slug           string    `gorm:"size:100;not null;uniqueIndex:membership_plans_slug_idx" json:"slug"`
	NameSv         string    `gorm:"size:200;not null" json:"name_sv"`
	NameEn         string    `gorm:"size:200;not null" json:"name_en"`
	DescriptionSv  string    `gorm:"type:text" json:"description_sv"`
	DescriptionEn  string    `gorm:"type:text" json:"description_en"`
	PriceSek       float64   `gorm:"type:decimal(10,2);not null" json:"price_sek"`
	IntervalMonths int       `gorm:"not null" json:"interval_months"`
	StripePriceID  string    `gorm:"size:255" json:"stripe_price_id"`
	Active         bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt      time.Time `gorm:"not null" json:"created_at"`
}

func (MembershipPlan) TableName() string { return "membership_plans" }

// Membership references user and plan by nullable foreign keys so a draft
// with an unresolved reference still loads.
type Membership struct {
	ID                 uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID             *uuid.UUID `gorm:"type:uuid;index:memberships_user_idx" json:"user_id,omitempty"`
	PlanID             *uuid.UUID `gorm:"type:uuid" json:"plan_id,omitempty"`
	Status             string     `gorm:"size:20;not null;default:active;index:memberships_status_idx" json:"status"`
	CurrentPeriodStart *time.Time `json:"current_period_start,omitempty"`
	CurrentPeriodEnd   *time.Time `json:"current_period_end,omitempty"`
	CreatedAt          time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt          time.Time  `gorm:"not null" json:"updated_at"`
}

func (Membership) TableName() string { return "memberships" }

type Order struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      *uuid.UUID `gorm:"type:uuid;index:orders_user_idx" json:"user_id,omitempty"`
	Channel     string     `gorm:"size:20;not null;default:online" json:"channel"`
	Status      string     `gorm:"size:20;not null;default:pending" json:"status"`
	TotalSek    float64    `gorm:"type:decimal(10,2);not null" json:"total_sek"`
	DiscountSek float64    `gorm:"type:decimal(10,2);not null;default:0" json:"discount_sek"`
	NetSek      float64    `gorm:"type:decimal(10,2);not null" json:"net_sek"`
	Currency    string     `gorm:"size:3;not null;default:SEK" json:"currency"`
	CreatedAt   time.Time  `gorm:"not null;index:orders_created_idx" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"not null" json:"updated_at"`
}

func (Order) TableName() string { return "orders" }

type Product struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Slug          string    `gorm:"size:300;not null;uniqueIndex:products_slug_idx" json:"slug"`
	NameSv        string    `gorm:"size:500;not null" json:"name_sv"`
	NameEn        string    `gorm:"size:500;not null" json:"name_en"`
	DescriptionSv string    `gorm:"type:text" json:"description_sv"`
	DescriptionEn string    `gorm:"type:text" json:"description_en"`
	PriceSek      float64   `gorm:"type:decimal(10,2);not null" json:"price_sek"`
	Published     bool      `gorm:"not null;default:false" json:"published"`
	CreatedAt     time.Time `gorm:"not null" json:"created_at"`
}

func (Product) TableName() string { return "products" }

// All lists every canonical model in dependency order, for schema setup in
// sqlite-backed tests.
func All() []any {
	return []any{
		&User{},
		&EventCategory{},
		&MembershipPlan{},
		&Event{},
		&Product{},
		&Membership{},
		&Order{},
	}
}
