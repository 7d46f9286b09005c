// config/security_config.go
package config

type SecurityLevel int

const (
	SecurityPublic  SecurityLevel = iota // No authentication
	SecurityWebhook                      // Provider signature verified by the handler
	SecurityCron                         // Shared cron secret
	SecurityStaff                        // Staff access token required
)

// EndpointSecurityConfig maps route names to their required security level
var EndpointSecurityConfig = map[string]SecurityLevel{
	// Customer portal - Public
	"public.reservation.view":     SecurityPublic,
	"public.reservation.checkout": SecurityPublic,
	"public.balance.view":         SecurityPublic,
	"public.balance.checkout":     SecurityPublic,
	"public.checkout.success":     SecurityPublic,
	"public.checkout.cancel":      SecurityPublic,
	"health":                      SecurityPublic,

	// Provider callbacks
	"webhook.stripe":    SecurityWebhook,
	"webhook.signature": SecurityWebhook,

	// Scheduled trigger
	"cron.reminders": SecurityCron,

	// Staff
	"staff.reservation.checkin":  SecurityStaff,
	"staff.reservation.checkout": SecurityStaff,
	"staff.contract.send":        SecurityStaff,
	"staff.contract.document":    SecurityStaff,
	"staff.payments.list":        SecurityStaff,
	"staff.notifications.list":   SecurityStaff,
	"staff.notifications.read":   SecurityStaff,
	"staff.photos.upload":        SecurityStaff,
	"staff.photos.download":      SecurityStaff,
}

// GetSecurityLevel returns the security level for a given route
func GetSecurityLevel(route string) SecurityLevel {
	if level, exists := EndpointSecurityConfig[route]; exists {
		return level
	}
	// Default to highest security for unknown endpoints
	return SecurityStaff
}
