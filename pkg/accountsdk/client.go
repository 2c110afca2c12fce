package accountsdk

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// Client is a client for the accounts service. It runs anonymous
// operations and creates authenticated Sessions.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a client with a 10 second request timeout.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// WithToken creates a Session that sends token as its bearer credential.
func (c *Client) WithToken(token string) *Session {
	return &Session{client: c, token: token}
}

// Login exchanges a username or email and password for a Session.
func (c *Client) Login(ctx context.Context, identifier, password string) (*Session, error) {
	var out struct {
		Login *Token `json:"login"`
	}
	err := c.Do(ctx, `mutation Login($identifier: String!, $password: String!) {
		login(identifier: $identifier, password: $password) { value expiresAt }
	}`, map[string]any{
		"identifier": identifier,
		"password":   password,
	}, &out)
	if err != nil {
		return nil, err
	}
	if out.Login == nil {
		return nil, &Error{Message: "empty login response"}
	}

	s := c.WithToken(out.Login.Value)
	s.expiresAt = out.Login.ExpiresAt
	return s, nil
}

// AddUser signs up a new account.
func (c *Client) AddUser(ctx context.Context, in NewUser) (*User, error) {
	var out struct {
		AddUser *User `json:"addUser"`
	}
	err := c.Do(ctx, `mutation AddUser(
		$username: String!, $firstname: String!, $lastname: String!,
		$email: String!, $password: String!, $passwordconf: String!
	) {
		addUser(username: $username, firstname: $firstname, lastname: $lastname,
			email: $email, password: $password, passwordconf: $passwordconf) { `+userFields+` }
	}`, map[string]any{
		"username":     in.Username,
		"firstname":    in.Firstname,
		"lastname":     in.Lastname,
		"email":        in.Email,
		"password":     in.Password,
		"passwordconf": in.PasswordConf,
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.AddUser, nil
}

// Do runs a GraphQL document anonymously and decodes its data into out.
func (c *Client) Do(ctx context.Context, query string, vars map[string]any, out any) error {
	return c.do(ctx, "", query, vars, out)
}
