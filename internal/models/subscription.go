package models

import "time"

// Subscription links a user to a location whose new alerts they want mailed
type Subscription struct {
	User      string    `json:"user" db:"user"`
	Location  string    `json:"location" db:"location"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// SubscriptionRequest is the body of PUT /subscriptions
type SubscriptionRequest struct {
	Locations []string `json:"locations"`
}

// Preference is a persisted client-state key
type Preference struct {
	Key       string    `json:"key" db:"key"`
	Value     string    `json:"value" db:"value"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Preference keys and allowed theme values
const (
	PreferenceTheme = "theme"
	ThemeLight      = "light"
	ThemeDark       = "dark"
)

// User is the display info carried by a session
type User struct {
	Usuario string `json:"usuario"`
	Correo  string `json:"correo"`
}

// Notification is a simulated alert e-mail for a subscribed location
type Notification struct {
	ID          string    `json:"id"`
	To          string    `json:"to"`
	User        string    `json:"user"`
	Location    string    `json:"location"`
	RiskLevel   string    `json:"risk_level"`
	Probability float64   `json:"probability"`
	CreatedAt   time.Time `json:"created_at"`
}
