package store

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (memory,
// sqlite, postgres, dynamodb) implement this.
type Store interface {
	Users() Users

	// ApplyMigrations brings the schema (or table) up to date. Drivers
	// without a schema treat it as a no-op.
	ApplyMigrations() error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the backend is still reachable.
	Ping(ctx context.Context) error
}

// Users is the key-value style user table. Every method is a single
// conditional operation against the backend: there are no transactions
// spanning calls.
type Users interface {
	// Get returns the record stored under id or ErrNotFound.
	Get(ctx context.Context, id string) (Record, error)

	// Insert writes r only if no record has the same id, search username or
	// search email. Otherwise it returns ErrAlreadyExists.
	Insert(ctx context.Context, r Record) error

	// Update writes the attribute groups set in a. It returns ErrNotFound
	// for a missing id and ErrAlreadyExists when a changed search key is
	// owned by another record.
	Update(ctx context.Context, id string, a Attributes) error

	// Delete removes the record or returns ErrNotFound.
	Delete(ctx context.Context, id string) error

	// Scan returns every record matching f, ordered by id. The zero Filter
	// matches everything.
	Scan(ctx context.Context, f Filter) ([]Record, error)

	// Count returns the number of records.
	Count(ctx context.Context) (int, error)
}

// Record is the persisted form of a user. Firstname, Lastname and
// ProfileInfo.DateOfBirth hold field-cipher output, never plaintext.
type Record struct {
	ID             string
	Username       string
	SearchUsername string
	Email          string
	SearchEmail    string
	Firstname      string
	Lastname       string
	PasswordHash   string
	ProfileInfo    ProfileInfo
	FriendList     []Friend
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ProfileInfo is stored as a single nested attribute.
type ProfileInfo struct {
	Location      string   `json:"location" dynamodbav:"location"`
	Gender        string   `json:"gender,omitempty" dynamodbav:"gender,omitempty"`
	MaritalStatus string   `json:"maritalStatus,omitempty" dynamodbav:"maritalStatus,omitempty"`
	DateOfBirth   string   `json:"dateOfBirth" dynamodbav:"dateOfBirth"`
	ProfileLikes  int      `json:"profileLikes" dynamodbav:"profileLikes"`
	Bio           string   `json:"bio" dynamodbav:"bio"`
	Tags          []string `json:"tags" dynamodbav:"tags"`
}

type Friend struct {
	UserID string `json:"userId" dynamodbav:"userId"`
	Status int    `json:"status" dynamodbav:"status"`
}

// Account is the identity attribute group written by account updates.
type Account struct {
	Username       string
	SearchUsername string
	Email          string
	SearchEmail    string
	Firstname      string
	Lastname       string
}

// Attributes selects which attribute groups an Update writes. Nil groups
// are left untouched. UpdatedAt is always written.
type Attributes struct {
	Account      *Account
	ProfileInfo  *ProfileInfo
	PasswordHash *string
	UpdatedAt    time.Time
}

// Filter narrows a Scan. Set fields are ANDed together.
type Filter struct {
	SearchUsername string
	SearchEmail    string
}

// Match reports whether r satisfies f.
func (f Filter) Match(r Record) bool {
	if f.SearchUsername != "" && r.SearchUsername != f.SearchUsername {
		return false
	}
	if f.SearchEmail != "" && r.SearchEmail != f.SearchEmail {
		return false
	}
	return true
}

// Apply returns r with the groups in a written over it.
func (a Attributes) Apply(r Record) Record {
	if a.Account != nil {
		r.Username = a.Account.Username
		r.SearchUsername = a.Account.SearchUsername
		r.Email = a.Account.Email
		r.SearchEmail = a.Account.SearchEmail
		r.Firstname = a.Account.Firstname
		r.Lastname = a.Account.Lastname
	}
	if a.ProfileInfo != nil {
		r.ProfileInfo = *a.ProfileInfo
	}
	if a.PasswordHash != nil {
		r.PasswordHash = *a.PasswordHash
	}
	r.UpdatedAt = a.UpdatedAt
	return r
}
