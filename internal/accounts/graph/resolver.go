package graph

import (
	"context"

	"github.com/aussiebroadwan/accounts/internal/accounts/domain"
	"github.com/aussiebroadwan/accounts/internal/accounts/policy"
	"github.com/aussiebroadwan/accounts/internal/accounts/service"
	"github.com/aussiebroadwan/accounts/pkg/httpx"
	"github.com/aussiebroadwan/accounts/pkg/idx"
	"github.com/graphql-go/graphql"
)

// Users is the part of service.UserService the schema resolves against.
type Users interface {
	GetCount(ctx context.Context) (int, error)
	GetAll(ctx context.Context) ([]domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	AddUser(ctx context.Context, in domain.NewUser) (domain.User, error)
	DeleteByID(ctx context.Context, id string) (*domain.User, error)
	UpdateAccount(ctx context.Context, up domain.AccountUpdate) (domain.User, error)
	UpdateInfo(ctx context.Context, up domain.InfoUpdate) (domain.ProfileInfo, error)
	UpdatePassword(ctx context.Context, up domain.PasswordUpdate) (domain.User, error)
	Login(ctx context.Context, identifier, password string) (domain.Token, error)
}

var _ Users = (*service.UserService)(nil)

type Resolver struct {
	Users  Users
	Policy policy.Gate
}

// guarded runs the policy check for the field before fn and maps every
// error fn returns onto a coded *Error.
func (r *Resolver) guarded(fn graphql.FieldResolveFn) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		target, _ := p.Args["id"].(string)
		if id, err := idx.Parse(target); err == nil {
			target = id.String()
		}
		req := policy.Request{
			Operation:     p.Info.FieldName,
			CurrentUserID: httpx.UserIDFromContext(p.Context),
			TargetID:      target,
		}
		if err := r.Policy.Allow(p.Context, req); err != nil {
			return nil, toError(p.Context, err)
		}

		v, err := fn(p)
		if err != nil {
			return nil, toError(p.Context, err)
		}
		return v, nil
	}
}

func (r *Resolver) getUserCount(p graphql.ResolveParams) (interface{}, error) {
	return r.Users.GetCount(p.Context)
}

func (r *Resolver) getAllUsers(p graphql.ResolveParams) (interface{}, error) {
	return r.Users.GetAll(p.Context)
}

func (r *Resolver) findUserByUsername(p graphql.ResolveParams) (interface{}, error) {
	return r.Users.FindByUsername(p.Context, stringArg(p, "username"))
}

func (r *Resolver) findUserByEmail(p graphql.ResolveParams) (interface{}, error) {
	return r.Users.FindByEmail(p.Context, stringArg(p, "email"))
}

func (r *Resolver) findUserByID(p graphql.ResolveParams) (interface{}, error) {
	id, ok := idArg(p)
	if !ok {
		return nil, nil
	}
	return r.Users.FindByID(p.Context, id)
}

func (r *Resolver) currentUser(p graphql.ResolveParams) (interface{}, error) {
	u, err := r.Users.FindByID(p.Context, httpx.UserIDFromContext(p.Context))
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, service.ErrUserNotFound
	}
	return u, nil
}

func (r *Resolver) login(p graphql.ResolveParams) (interface{}, error) {
	return r.Users.Login(p.Context, stringArg(p, "identifier"), stringArg(p, "password"))
}

func (r *Resolver) addUser(p graphql.ResolveParams) (interface{}, error) {
	return r.Users.AddUser(p.Context, domain.NewUser{
		Username:     stringArg(p, "username"),
		Firstname:    stringArg(p, "firstname"),
		Lastname:     stringArg(p, "lastname"),
		Email:        stringArg(p, "email"),
		Password:     stringArg(p, "password"),
		PasswordConf: stringArg(p, "passwordconf"),
	})
}

func (r *Resolver) deleteUserByID(p graphql.ResolveParams) (interface{}, error) {
	id, ok := idArg(p)
	if !ok {
		return nil, nil
	}
	return r.Users.DeleteByID(p.Context, id)
}

func (r *Resolver) updateUserAccount(p graphql.ResolveParams) (interface{}, error) {
	id, ok := idArg(p)
	if !ok {
		return nil, service.ErrUserNotFound
	}
	return r.Users.UpdateAccount(p.Context, domain.AccountUpdate{
		ID:        id,
		Username:  optionalArg[string](p, "username"),
		Firstname: optionalArg[string](p, "firstname"),
		Lastname:  optionalArg[string](p, "lastname"),
		Email:     optionalArg[string](p, "email"),
	})
}

func (r *Resolver) updateUserInfo(p graphql.ResolveParams) (interface{}, error) {
	id, ok := idArg(p)
	if !ok {
		return nil, service.ErrUserNotFound
	}
	return r.Users.UpdateInfo(p.Context, domain.InfoUpdate{
		ID:            id,
		Location:      optionalArg[string](p, "location"),
		Gender:        optionalArg[domain.Gender](p, "gender"),
		MaritalStatus: optionalArg[domain.MaritalStatus](p, "maritalStatus"),
		DateOfBirth:   optionalArg[string](p, "dateOfBirth"),
		Bio:           optionalArg[string](p, "bio"),
		Tags:          tagsArg(p, "tags"),
	})
}

func (r *Resolver) updateUserPassword(p graphql.ResolveParams) (interface{}, error) {
	id, ok := idArg(p)
	if !ok {
		return nil, service.ErrUserNotFound
	}
	return r.Users.UpdatePassword(p.Context, domain.PasswordUpdate{
		ID:           id,
		Password:     stringArg(p, "password"),
		PasswordConf: stringArg(p, "passwordconf"),
	})
}

// idArg reads the id argument in canonical form. Malformed ids never reach
// the store.
func idArg(p graphql.ResolveParams) (string, bool) {
	id, err := idx.Parse(stringArg(p, "id"))
	if err != nil {
		return "", false
	}
	return id.String(), true
}

func stringArg(p graphql.ResolveParams, name string) string {
	s, _ := p.Args[name].(string)
	return s
}

// optionalArg reads a nullable argument. An argument missing from the map
// is absent, a nil value is an explicit null.
func optionalArg[T any](p graphql.ResolveParams, name string) domain.Optional[T] {
	v, ok := p.Args[name]
	if !ok {
		return domain.Optional[T]{}
	}
	if v == nil {
		return domain.Null[T]()
	}
	t, ok := v.(T)
	if !ok {
		return domain.Optional[T]{}
	}
	return domain.Some(t)
}

func tagsArg(p graphql.ResolveParams, name string) domain.Optional[[]string] {
	v, ok := p.Args[name]
	if !ok {
		return domain.Optional[[]string]{}
	}
	list, ok := v.([]interface{})
	if !ok {
		return domain.Null[[]string]()
	}

	tags := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			tags = append(tags, s)
		}
	}
	return domain.Some(tags)
}
