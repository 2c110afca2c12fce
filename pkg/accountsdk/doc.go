/*
Package accountsdk provides a client SDK for the accounts GraphQL service.

# Client vs Session

The package is organized around two main types:

  - Client: anonymous operations (sign up, login, health checks)
  - Session: operations that carry a bearer token

Create a Client and log in to get a Session:

	client := accountsdk.NewClient("https://accounts.example.com")

	user, err := client.AddUser(ctx, accountsdk.NewUser{
		Username:     "juuso",
		Firstname:    "Juuso",
		Lastname:     "Järvinen",
		Email:        "juuso@example.com",
		Password:     "hunter2hunter2",
		PasswordConf: "hunter2hunter2",
	})

	session, err := client.Login(ctx, "juuso", "hunter2hunter2")
	me, err := session.CurrentUser(ctx)

Any query the typed helpers do not cover can be sent with Client.Do or
Session.Do, which decode the "data" member of the response into out.

# Errors

GraphQL errors are returned as *Error carrying the server's extensions.code:

	_, err := client.AddUser(ctx, dup)
	var apiErr *accountsdk.Error
	if errors.As(err, &apiErr) && apiErr.Code == accountsdk.CodeConflict {
		// username or email already taken
	}

Non-200 responses, such as rate limiting, are returned as *Error with the
HTTP status code set and an empty Code.
*/
package accountsdk
