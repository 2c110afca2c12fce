package domain

import "time"

type Gender string

const (
	GenderMale   Gender = "MALE"
	GenderFemale Gender = "FEMALE"
)

// Genders lists every accepted Gender in declaration order.
var Genders = []Gender{GenderMale, GenderFemale}

type MaritalStatus string

const (
	MaritalStatusSingle   MaritalStatus = "SINGLE"
	MaritalStatusDivorced MaritalStatus = "DIVORCED"
	MaritalStatusMarried  MaritalStatus = "MARRIED"
	MaritalStatusWidowed  MaritalStatus = "WIDOWED"
	MaritalStatusTaken    MaritalStatus = "TAKEN"
)

// MaritalStatuses lists every accepted MaritalStatus in declaration order.
var MaritalStatuses = []MaritalStatus{
	MaritalStatusSingle,
	MaritalStatusDivorced,
	MaritalStatusMarried,
	MaritalStatusWidowed,
	MaritalStatusTaken,
}

// ProfileInfo is the free-form half of a user. DateOfBirth is plaintext
// here and only ever encrypted inside the store record.
type ProfileInfo struct {
	Location      string        `json:"location"`
	Gender        Gender        `json:"gender,omitempty"`
	MaritalStatus MaritalStatus `json:"maritalStatus,omitempty"`
	DateOfBirth   string        `json:"dateOfBirth"`
	ProfileLikes  int           `json:"profileLikes"`
	Bio           string        `json:"bio"`
	Tags          []string      `json:"tags"`
}

type Friend struct {
	UserID string `json:"userId"`
	Status int    `json:"status"`
}

// User is the decrypted view of an account. It never carries the password
// hash.
type User struct {
	ID          string      `json:"id"`
	Username    string      `json:"username"`
	Firstname   string      `json:"firstname"`
	Lastname    string      `json:"lastname"`
	Email       string      `json:"email"`
	ProfileInfo ProfileInfo `json:"profileInfo"`
	FriendList  []Friend    `json:"friendList"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// Token is a signed bearer token handed out on login.
type Token struct {
	Value     string    `json:"value"`
	ExpiresAt time.Time `json:"expiresAt"`
}
