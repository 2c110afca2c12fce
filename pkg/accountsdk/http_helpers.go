package accountsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const userFields = `id username firstname lastname email
	profileInfo { location gender maritalStatus dateOfBirth profileLikes bio tags }
	friendList { userId status }`

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors"`
}

type graphQLError struct {
	Message    string `json:"message"`
	Extensions struct {
		Code string `json:"code"`
	} `json:"extensions"`
}

// url builds a complete URL by appending the path to the base URL.
func (c *Client) url(path string) string {
	return c.BaseURL + path
}

// doRequest performs an HTTP request with the client's HTTP client.
func (c *Client) doRequest(
	ctx context.Context,
	method, path string,
	body io.Reader,
	headers map[string]string,
) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.url(path), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	return resp, nil
}

// do posts a GraphQL document. The first GraphQL error, if any, is returned
// as *Error; otherwise data is decoded into out.
func (c *Client) do(ctx context.Context, token, query string, vars map[string]any, out any) error {
	body, err := json.Marshal(graphQLRequest{Query: query, Variables: vars})
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	headers := map[string]string{"Content-Type": "application/json"}
	if token != "" {
		headers["Authorization"] = "Bearer " + token
	}

	resp, err := c.doRequest(ctx, http.MethodPost, "/graphql", bytes.NewReader(body), headers)
	if err != nil {
		return err
	}

	var gql graphQLResponse
	if err := decodeJSON(resp, &gql, http.StatusOK); err != nil {
		return err
	}

	if len(gql.Errors) > 0 {
		e := gql.Errors[0]
		return &Error{Message: e.Message, Code: e.Extensions.Code}
	}

	if out == nil || len(gql.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(gql.Data, out); err != nil {
		return fmt.Errorf("failed to decode data: %w", err)
	}
	return nil
}

// decodeJSON decodes a JSON response into target. Any other status than
// expectedStatus is returned as *Error.
func decodeJSON(resp *http.Response, target any, expectedStatus int) error {
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != expectedStatus {
		return parseErrorResponse(resp, bodyBytes)
	}

	if err := json.Unmarshal(bodyBytes, target); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

func parseErrorResponse(resp *http.Response, body []byte) error {
	// GraphQL transports may still answer with a coded error body.
	var gql graphQLResponse
	if err := json.Unmarshal(body, &gql); err == nil && len(gql.Errors) > 0 {
		e := gql.Errors[0]
		return &Error{Message: e.Message, Code: e.Extensions.Code, StatusCode: resp.StatusCode}
	}

	var oauth struct {
		Description string `json:"error_description"`
	}
	if err := json.Unmarshal(body, &oauth); err == nil && oauth.Description != "" {
		return &Error{Message: oauth.Description, StatusCode: resp.StatusCode}
	}

	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &Error{Message: msg, StatusCode: resp.StatusCode}
}
