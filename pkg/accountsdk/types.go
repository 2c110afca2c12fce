package accountsdk

import "time"

// ============================================================================
// User Types
// ============================================================================

// User is the public view of an account. It never carries the password.
type User struct {
	ID          string      `json:"id"`
	Username    string      `json:"username"`
	Firstname   string      `json:"firstname"`
	Lastname    string      `json:"lastname"`
	Email       string      `json:"email"`
	ProfileInfo ProfileInfo `json:"profileInfo"`
	FriendList  []Friend    `json:"friendList"`
}

// ProfileInfo holds the free-form part of a user. Gender and MaritalStatus
// are empty when unset.
type ProfileInfo struct {
	Location      string   `json:"location"`
	Gender        string   `json:"gender"`
	MaritalStatus string   `json:"maritalStatus"`
	DateOfBirth   string   `json:"dateOfBirth"`
	ProfileLikes  int      `json:"profileLikes"`
	Bio           string   `json:"bio"`
	Tags          []string `json:"tags"`
}

type Friend struct {
	UserID string `json:"userId"`
	Status int    `json:"status"`
}

// Token is returned by login.
type Token struct {
	Value     string    `json:"value"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ============================================================================
// Input Types
// ============================================================================

// NewUser is the input to Client.AddUser.
type NewUser struct {
	Username     string
	Firstname    string
	Lastname     string
	Email        string
	Password     string
	PasswordConf string
}

// AccountUpdate changes identity fields. Nil fields are left untouched.
type AccountUpdate struct {
	Username  *string
	Firstname *string
	Lastname  *string
	Email     *string
}

// InfoUpdate is merged over the stored profile info. Nil fields keep their
// stored value.
type InfoUpdate struct {
	Location      *string
	Gender        *string
	MaritalStatus *string
	DateOfBirth   *string
	Bio           *string
	Tags          []string
}

// ============================================================================
// Health Types
// ============================================================================

// HealthResponse represents the response structure for health check endpoints.
// Used by both /livez and /readyz endpoints (readyz includes additional Checks field).
type HealthResponse struct {
	// Status indicates the overall health status (e.g., "ok")
	Status string `json:"status"`

	// Uptime is the service uptime duration as a string (e.g., "1h23m45s")
	Uptime string `json:"uptime,omitempty"`

	// Version is the service version string
	Version string `json:"version,omitempty"`

	// Checks contains readiness check results for critical dependencies (only for /readyz)
	Checks *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks represents the status of critical service dependencies.
type HealthChecks struct {
	// Database indicates the user store connection status
	Database string `json:"database"`
}

// Ptr returns a pointer to v, for building update inputs.
func Ptr[T any](v T) *T { return &v }
