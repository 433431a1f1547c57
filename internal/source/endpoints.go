package source

// AuthMode selects how requests to an endpoint authenticate.
type AuthMode int

const (
	AuthNone AuthMode = iota
	// AuthBasic sends the WooCommerce consumer key pair as HTTP Basic.
	AuthBasic
)

// Endpoint describes one paged REST endpoint of the legacy site. Name is
// also the checkpoint artifact name.
type Endpoint struct {
	Name   string
	Path   string
	Params map[string]string
	Auth   AuthMode
}

// Endpoints lists everything the extraction pass pulls, mirroring the
// legacy site's full API surface. Not every endpoint feeds the load phases;
// the extra checkpoints (venues, tickets, course content, page copy) exist
// so content migration can run later without recontacting the site.
func Endpoints() []Endpoint {
	return []Endpoint{
		{Name: "events", Path: "tribe/events/v1/events", Params: map[string]string{"status": "publish,private,draft"}},
		{Name: "venues", Path: "tribe/events/v1/venues"},
		{Name: "organizers", Path: "tribe/events/v1/organizers"},
		{Name: "tickets", Path: "tribe/tickets/v1/tickets"},
		{Name: "attendees", Path: "tribe/tickets/v1/attendees"},
		{Name: "wc_orders", Path: "wc/v3/orders", Params: map[string]string{"status": "any"}, Auth: AuthBasic},
		{Name: "wc_products", Path: "wc/v3/products", Params: map[string]string{"status": "any"}, Auth: AuthBasic},
		{Name: "wc_customers", Path: "wc/v3/customers", Auth: AuthBasic},
		{Name: "wc_subscriptions", Path: "wc/v3/subscriptions", Params: map[string]string{"status": "any"}, Auth: AuthBasic},
		{Name: "wc_coupons", Path: "wc/v3/coupons", Auth: AuthBasic},
		{Name: "wc_product_categories", Path: "wc/v3/products/categories", Auth: AuthBasic},
		{Name: "pmpro_levels", Path: "pmpro/v1/membership_levels"},
		{Name: "pmpro_recent_memberships", Path: "pmpro/v1/recent_memberships"},
		{Name: "wp_users_public", Path: "wp/v2/users"},
		{Name: "wp_pages", Path: "wp/v2/pages", Params: map[string]string{"status": "any"}},
		{Name: "wp_posts", Path: "wp/v2/posts", Params: map[string]string{"status": "any"}},
		{Name: "ld_courses", Path: "wp/v2/sfwd-courses", Params: map[string]string{"status": "any"}},
		{Name: "ld_lessons", Path: "wp/v2/sfwd-lessons", Params: map[string]string{"status": "any"}},
		{Name: "event_categories", Path: "wp/v2/tribe_events_cat"},
	}
}
