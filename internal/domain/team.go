package domain

type PlanTier string

const (
	PlanTierFree       PlanTier = "free"
	PlanTierPro        PlanTier = "pro"
	PlanTierEnterprise PlanTier = "enterprise"
)

// Team is a tenant of the platform. Money collected on its behalf is routed to
// PayoutAccountID minus the platform fee.
type Team struct {
	ID                int32    `json:"id"`
	Name              string   `json:"name"`
	PlanTier          PlanTier `json:"plan_tier"`
	PayoutAccountID   string   `json:"payout_account_id"`
	NotificationEmail string   `json:"notification_email"`
	CreatedOn         string   `json:"created_on"`
}

func (t *Team) HasPayoutAccount() bool {
	return t.PayoutAccountID != ""
}

type Customer struct {
	ID        int32  `json:"id"`
	TeamID    int32  `json:"team_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Locale    string `json:"locale"`
}

func (c *Customer) FullName() string {
	if c.LastName == "" {
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}
