package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/aussiebroadwan/accounts/internal/accounts/policy"
	"github.com/aussiebroadwan/accounts/pkg/httpx"
	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/gqlerrors"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
)

// maxBodyBytes bounds a GraphQL request body.
const maxBodyBytes = 1 << 20

// Rate limit tiers picked by classifyOperation.
const (
	tierDefault = ""
	tierStrict  = "strict"
)

// GraphQLRequest is the body of a POST /graphql request.
type GraphQLRequest struct {
	Query         string                 `json:"query" example:"{ currentUser { id username } }"`
	Variables     map[string]interface{} `json:"variables,omitempty"`
	OperationName string                 `json:"operationName,omitempty"`
}

// GraphQLResponse is the body of every /graphql response.
type GraphQLResponse struct {
	Data   interface{}                `json:"data,omitempty"`
	Errors []gqlerrors.FormattedError `json:"errors,omitempty"`
}

type GraphQLHandler struct {
	Schema graphql.Schema
}

// ServeHTTP godoc
//
//	@Summary		GraphQL endpoint
//	@Description	Executes a GraphQL query or mutation. Authenticated operations need a bearer token from the login mutation.
//	@Description	login and addUser are rate limited strictly per IP, everything else moderately per user.
//	@Tags			GraphQL
//	@Accept			json
//	@Produce		json
//	@Param			request	body		GraphQLRequest	true	"GraphQL request"
//	@Success		200		{object}	GraphQLResponse	"data and errors; errors carry extensions.code"
//	@Failure		400		{object}	GraphQLResponse	"malformed request"
//	@Failure		429		{object}	map[string]string
//	@Security		BearerAuth
//	@Router			/graphql [post].
func (h *GraphQLHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	req, err := readGraphQLRequest(r)
	if err != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, GraphQLResponse{
			Errors: []gqlerrors.FormattedError{gqlerrors.NewFormattedError(err.Error())},
		})
		return
	}

	res := graphql.Do(graphql.Params{
		Schema:         h.Schema,
		RequestString:  req.Query,
		VariableValues: req.Variables,
		OperationName:  req.OperationName,
		Context:        r.Context(),
	})

	httpx.WriteJSON(w, http.StatusOK, GraphQLResponse{Data: res.Data, Errors: res.Errors})
}

// readGraphQLRequest accepts the usual GraphQL-over-HTTP encodings. The
// body is restored so the request can be read again downstream.
func readGraphQLRequest(r *http.Request) (GraphQLRequest, error) {
	var req GraphQLRequest

	if r.Method == http.MethodGet {
		q := r.URL.Query()
		req.Query = q.Get("query")
		req.OperationName = q.Get("operationName")
		if vars := q.Get("variables"); vars != "" {
			if err := json.Unmarshal([]byte(vars), &req.Variables); err != nil {
				return req, fmt.Errorf("variables must be a JSON object: %w", err)
			}
		}
	} else {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
		if err != nil {
			return req, fmt.Errorf("read body: %w", err)
		}
		r.Body = io.NopCloser(bytes.NewReader(body))
		if len(body) > maxBodyBytes {
			return req, httpx.ErrBodyTooLarge
		}

		mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if mediaType == "application/graphql" {
			req.Query = string(body)
		} else if err := json.Unmarshal(body, &req); err != nil {
			return req, fmt.Errorf("body must be a JSON GraphQL request: %w", err)
		}
	}

	if req.Query == "" {
		return req, errors.New("query is required")
	}
	return req, nil
}

// classifyOperation returns tierStrict when the document selects a
// credential mutation at its top level.
func classifyOperation(r *http.Request) string {
	req, err := readGraphQLRequest(r)
	if err != nil {
		return tierDefault
	}

	doc, err := parser.ParseQuery(&ast.Source{Name: "request", Input: req.Query})
	if err != nil {
		return tierDefault
	}

	for _, op := range doc.Operations {
		if selectsAny(doc, op.SelectionSet, policy.OpLogin, policy.OpAddUser) {
			return tierStrict
		}
	}
	return tierDefault
}

func selectsAny(doc *ast.QueryDocument, set ast.SelectionSet, names ...string) bool {
	seen := map[string]bool{}

	var walk func(set ast.SelectionSet) bool
	walk = func(set ast.SelectionSet) bool {
		for _, sel := range set {
			switch s := sel.(type) {
			case *ast.Field:
				for _, name := range names {
					if s.Name == name {
						return true
					}
				}
			case *ast.InlineFragment:
				if walk(s.SelectionSet) {
					return true
				}
			case *ast.FragmentSpread:
				if seen[s.Name] {
					continue
				}
				seen[s.Name] = true
				if frag := doc.Fragments.ForName(s.Name); frag != nil && walk(frag.SelectionSet) {
					return true
				}
			}
		}
		return false
	}
	return walk(set)
}
