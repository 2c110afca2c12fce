package dynamodb

import (
	"time"

	"github.com/aussiebroadwan/accounts/internal/accounts/store"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	attrID             = "id"
	attrKind           = "kind"
	attrOwner          = "owner"
	attrUsername       = "username"
	attrSearchUsername = "searchUsername"
	attrEmail          = "email"
	attrSearchEmail    = "searchEmail"
	attrFirstname      = "firstname"
	attrLastname       = "lastname"
	attrPassword       = "password"
	attrProfileInfo    = "profileInfo"
	attrUpdatedAt      = "updatedAt"

	kindUser  = "user"
	kindGuard = "guard"
)

type userItem struct {
	ID             string            `dynamodbav:"id"`
	Kind           string            `dynamodbav:"kind"`
	Username       string            `dynamodbav:"username"`
	SearchUsername string            `dynamodbav:"searchUsername"`
	Email          string            `dynamodbav:"email"`
	SearchEmail    string            `dynamodbav:"searchEmail"`
	Firstname      string            `dynamodbav:"firstname"`
	Lastname       string            `dynamodbav:"lastname"`
	Password       string            `dynamodbav:"password"`
	ProfileInfo    store.ProfileInfo `dynamodbav:"profileInfo"`
	FriendList     []store.Friend    `dynamodbav:"friendList"`
	CreatedAt      time.Time         `dynamodbav:"createdAt"`
	UpdatedAt      time.Time         `dynamodbav:"updatedAt"`
}

// guardItem reserves a search key for its owner.
type guardItem struct {
	ID    string `dynamodbav:"id"`
	Kind  string `dynamodbav:"kind"`
	Owner string `dynamodbav:"owner"`
}

func usernameGuard(key string) string { return "username#" + key }
func emailGuard(key string) string    { return "email#" + key }

func fromRecord(r store.Record) userItem {
	tags := r.ProfileInfo.Tags
	if tags == nil {
		tags = []string{}
	}
	info := r.ProfileInfo
	info.Tags = tags

	friends := r.FriendList
	if friends == nil {
		friends = []store.Friend{}
	}

	return userItem{
		ID:             r.ID,
		Kind:           kindUser,
		Username:       r.Username,
		SearchUsername: r.SearchUsername,
		Email:          r.Email,
		SearchEmail:    r.SearchEmail,
		Firstname:      r.Firstname,
		Lastname:       r.Lastname,
		Password:       r.PasswordHash,
		ProfileInfo:    info,
		FriendList:     friends,
		CreatedAt:      r.CreatedAt.UTC(),
		UpdatedAt:      r.UpdatedAt.UTC(),
	}
}

func (it userItem) record() store.Record {
	info := it.ProfileInfo
	if info.Tags == nil {
		info.Tags = []string{}
	}
	friends := it.FriendList
	if friends == nil {
		friends = []store.Friend{}
	}

	return store.Record{
		ID:             it.ID,
		Username:       it.Username,
		SearchUsername: it.SearchUsername,
		Email:          it.Email,
		SearchEmail:    it.SearchEmail,
		Firstname:      it.Firstname,
		Lastname:       it.Lastname,
		PasswordHash:   it.Password,
		ProfileInfo:    info,
		FriendList:     friends,
		CreatedAt:      it.CreatedAt.UTC(),
		UpdatedAt:      it.UpdatedAt.UTC(),
	}
}

func keyOf(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{attrID: &types.AttributeValueMemberS{Value: id}}
}
