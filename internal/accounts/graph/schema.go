// Package graph exposes the user service as a GraphQL schema.
package graph

import (
	"github.com/aussiebroadwan/accounts/internal/accounts/domain"
	"github.com/graphql-go/graphql"
)

// NewSchema builds the schema with every field resolved through r.
func NewSchema(r *Resolver) (graphql.Schema, error) {
	gender := enumType("Gender", domain.Genders)
	maritalStatus := enumType("MaritalStatus", domain.MaritalStatuses)

	friendType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Friend",
		Fields: graphql.Fields{
			"userId": &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
			"status": &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
		},
	})

	profileInfoType := graphql.NewObject(graphql.ObjectConfig{
		Name: "ProfileInfo",
		Fields: graphql.Fields{
			"location":      &graphql.Field{Type: graphql.String},
			"gender":        &graphql.Field{Type: gender},
			"maritalStatus": &graphql.Field{Type: maritalStatus},
			"dateOfBirth":   &graphql.Field{Type: graphql.String},
			"profileLikes":  &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
			"bio":           &graphql.Field{Type: graphql.String},
			"tags":          &graphql.Field{Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(graphql.String)))},
		},
	})

	userType := graphql.NewObject(graphql.ObjectConfig{
		Name: "User",
		Fields: graphql.Fields{
			"id":          &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
			"username":    &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"firstname":   &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"lastname":    &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"email":       &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"profileInfo": &graphql.Field{Type: graphql.NewNonNull(profileInfoType)},
			"friendList":  &graphql.Field{Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(friendType)))},
			"createdAt":   &graphql.Field{Type: graphql.DateTime},
			"updatedAt":   &graphql.Field{Type: graphql.DateTime},
		},
	})

	tokenType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Token",
		Fields: graphql.Fields{
			"value":     &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"expiresAt": &graphql.Field{Type: graphql.NewNonNull(graphql.DateTime)},
		},
	})

	requiredString := &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)}
	optionalString := &graphql.ArgumentConfig{Type: graphql.String}
	requiredID := &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)}

	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"getUserCount": &graphql.Field{
				Type:    graphql.NewNonNull(graphql.Int),
				Resolve: r.guarded(r.getUserCount),
			},
			"getAllUsers": &graphql.Field{
				Type:    graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(userType))),
				Resolve: r.guarded(r.getAllUsers),
			},
			"findUserByUsername": &graphql.Field{
				Type:    userType,
				Args:    graphql.FieldConfigArgument{"username": requiredString},
				Resolve: r.guarded(r.findUserByUsername),
			},
			"findUserByEmail": &graphql.Field{
				Type:    userType,
				Args:    graphql.FieldConfigArgument{"email": requiredString},
				Resolve: r.guarded(r.findUserByEmail),
			},
			"findUserById": &graphql.Field{
				Type:    userType,
				Args:    graphql.FieldConfigArgument{"id": requiredID},
				Resolve: r.guarded(r.findUserByID),
			},
			"currentUser": &graphql.Field{
				Type:    graphql.NewNonNull(userType),
				Resolve: r.guarded(r.currentUser),
			},
		},
	})

	mutation := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"login": &graphql.Field{
				Type: tokenType,
				Args: graphql.FieldConfigArgument{
					"identifier": requiredString,
					"password":   requiredString,
				},
				Resolve: r.guarded(r.login),
			},
			"addUser": &graphql.Field{
				Type: userType,
				Args: graphql.FieldConfigArgument{
					"username":     requiredString,
					"firstname":    requiredString,
					"lastname":     requiredString,
					"email":        requiredString,
					"password":     requiredString,
					"passwordconf": requiredString,
				},
				Resolve: r.guarded(r.addUser),
			},
			"deleteUserById": &graphql.Field{
				Type:    userType,
				Args:    graphql.FieldConfigArgument{"id": requiredID},
				Resolve: r.guarded(r.deleteUserByID),
			},
			"updateUserAccount": &graphql.Field{
				Type: userType,
				Args: graphql.FieldConfigArgument{
					"id":        requiredID,
					"username":  optionalString,
					"firstname": optionalString,
					"lastname":  optionalString,
					"email":     optionalString,
				},
				Resolve: r.guarded(r.updateUserAccount),
			},
			"updateUserInfo": &graphql.Field{
				Type: profileInfoType,
				Args: graphql.FieldConfigArgument{
					"id":            requiredID,
					"location":      optionalString,
					"gender":        &graphql.ArgumentConfig{Type: gender},
					"maritalStatus": &graphql.ArgumentConfig{Type: maritalStatus},
					"dateOfBirth":   optionalString,
					"bio":           optionalString,
					"tags":          &graphql.ArgumentConfig{Type: graphql.NewList(graphql.NewNonNull(graphql.String))},
				},
				Resolve: r.guarded(r.updateUserInfo),
			},
			"updateUserPassword": &graphql.Field{
				Type: userType,
				Args: graphql.FieldConfigArgument{
					"id":           requiredID,
					"password":     requiredString,
					"passwordconf": requiredString,
				},
				Resolve: r.guarded(r.updateUserPassword),
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    query,
		Mutation: mutation,
	})
}

// enumType maps each typed value to its own name, so resolvers receive and
// return the domain type directly.
func enumType[T ~string](name string, values []T) *graphql.Enum {
	cfg := graphql.EnumValueConfigMap{}
	for _, v := range values {
		cfg[string(v)] = &graphql.EnumValueConfig{Value: v}
	}
	return graphql.NewEnum(graphql.EnumConfig{Name: name, Values: cfg})
}
