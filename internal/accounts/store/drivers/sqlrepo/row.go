package sqlrepo

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aussiebroadwan/accounts/internal/accounts/store"
)

// columns is the select list shared by every query, in row order.
const columns = `id, username, search_username, email, search_email, firstname, lastname,
	password_hash, profile_info, friend_list, created_at, updated_at`

// row is the SQL shape of a store.Record. The nested attributes live in
// JSON text (sqlite) or JSONB (postgres) columns.
type row struct {
	ID             string                  `db:"id"`
	Username       string                  `db:"username"`
	SearchUsername string                  `db:"search_username"`
	Email          string                  `db:"email"`
	SearchEmail    string                  `db:"search_email"`
	Firstname      string                  `db:"firstname"`
	Lastname       string                  `db:"lastname"`
	PasswordHash   string                  `db:"password_hash"`
	ProfileInfo    JSON[store.ProfileInfo] `db:"profile_info"`
	FriendList     JSON[[]store.Friend]    `db:"friend_list"`
	CreatedAt      time.Time               `db:"created_at"`
	UpdatedAt      time.Time               `db:"updated_at"`
}

func fromRecord(r store.Record) row {
	return row{
		ID:             r.ID,
		Username:       r.Username,
		SearchUsername: r.SearchUsername,
		Email:          r.Email,
		SearchEmail:    r.SearchEmail,
		Firstname:      r.Firstname,
		Lastname:       r.Lastname,
		PasswordHash:   r.PasswordHash,
		ProfileInfo:    JSON[store.ProfileInfo]{V: r.ProfileInfo},
		FriendList:     JSON[[]store.Friend]{V: r.FriendList},
		CreatedAt:      r.CreatedAt.UTC(),
		UpdatedAt:      r.UpdatedAt.UTC(),
	}
}

func (r row) record() store.Record {
	friends := r.FriendList.V
	if friends == nil {
		friends = []store.Friend{}
	}
	info := r.ProfileInfo.V
	if info.Tags == nil {
		info.Tags = []string{}
	}

	return store.Record{
		ID:             r.ID,
		Username:       r.Username,
		SearchUsername: r.SearchUsername,
		Email:          r.Email,
		SearchEmail:    r.SearchEmail,
		Firstname:      r.Firstname,
		Lastname:       r.Lastname,
		PasswordHash:   r.PasswordHash,
		ProfileInfo:    info,
		FriendList:     friends,
		CreatedAt:      r.CreatedAt.UTC(),
		UpdatedAt:      r.UpdatedAt.UTC(),
	}
}

// JSON stores V as a JSON document in a single column.
type JSON[T any] struct {
	V T
}

func (j JSON[T]) Value() (driver.Value, error) {
	b, err := json.Marshal(j.V)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (j *JSON[T]) Scan(src any) error {
	var b []byte
	switch v := src.(type) {
	case nil:
		var zero T
		j.V = zero
		return nil
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("sqlrepo: cannot scan %T into JSON column", src)
	}
	return json.Unmarshal(b, &j.V)
}
