package accountsdk

import "context"

// CurrentUser returns the user the session belongs to.
func (s *Session) CurrentUser(ctx context.Context) (*User, error) {
	var out struct {
		CurrentUser *User `json:"currentUser"`
	}
	if err := s.Do(ctx, `query { currentUser { `+userFields+` } }`, nil, &out); err != nil {
		return nil, err
	}
	return out.CurrentUser, nil
}

// FindUserByID returns nil, nil when no user has the id.
func (s *Session) FindUserByID(ctx context.Context, id string) (*User, error) {
	var out struct {
		FindUserByID *User `json:"findUserById"`
	}
	err := s.Do(ctx, `query FindUser($id: ID!) { findUserById(id: $id) { `+userFields+` } }`,
		map[string]any{"id": id}, &out)
	if err != nil {
		return nil, err
	}
	return out.FindUserByID, nil
}

// GetUserCount returns the number of registered users.
func (s *Session) GetUserCount(ctx context.Context) (int, error) {
	var out struct {
		GetUserCount int `json:"getUserCount"`
	}
	if err := s.Do(ctx, `query { getUserCount }`, nil, &out); err != nil {
		return 0, err
	}
	return out.GetUserCount, nil
}

// UpdateAccount changes the identity fields set in up.
func (s *Session) UpdateAccount(ctx context.Context, id string, up AccountUpdate) (*User, error) {
	var out struct {
		UpdateUserAccount *User `json:"updateUserAccount"`
	}
	err := s.Do(ctx, `mutation UpdateAccount(
		$id: ID!, $username: String, $firstname: String, $lastname: String, $email: String
	) {
		updateUserAccount(id: $id, username: $username, firstname: $firstname,
			lastname: $lastname, email: $email) { `+userFields+` }
	}`, map[string]any{
		"id":        id,
		"username":  up.Username,
		"firstname": up.Firstname,
		"lastname":  up.Lastname,
		"email":     up.Email,
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.UpdateUserAccount, nil
}

// UpdateInfo merges up over the stored profile info and returns the result.
func (s *Session) UpdateInfo(ctx context.Context, id string, up InfoUpdate) (*ProfileInfo, error) {
	var out struct {
		UpdateUserInfo *ProfileInfo `json:"updateUserInfo"`
	}
	vars := map[string]any{
		"id":            id,
		"location":      up.Location,
		"gender":        up.Gender,
		"maritalStatus": up.MaritalStatus,
		"dateOfBirth":   up.DateOfBirth,
		"bio":           up.Bio,
	}
	if up.Tags != nil {
		vars["tags"] = up.Tags
	}

	err := s.Do(ctx, `mutation UpdateInfo(
		$id: ID!, $location: String, $gender: Gender, $maritalStatus: MaritalStatus,
		$dateOfBirth: String, $bio: String, $tags: [String!]
	) {
		updateUserInfo(id: $id, location: $location, gender: $gender, maritalStatus: $maritalStatus,
			dateOfBirth: $dateOfBirth, bio: $bio, tags: $tags) {
			location gender maritalStatus dateOfBirth profileLikes bio tags
		}
	}`, vars, &out)
	if err != nil {
		return nil, err
	}
	return out.UpdateUserInfo, nil
}

// UpdatePassword sets a new password. The session's token stays valid.
func (s *Session) UpdatePassword(ctx context.Context, id, password, confirmation string) (*User, error) {
	var out struct {
		UpdateUserPassword *User `json:"updateUserPassword"`
	}
	err := s.Do(ctx, `mutation UpdatePassword($id: ID!, $password: String!, $passwordconf: String!) {
		updateUserPassword(id: $id, password: $password, passwordconf: $passwordconf) { `+userFields+` }
	}`, map[string]any{
		"id":           id,
		"password":     password,
		"passwordconf": confirmation,
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.UpdateUserPassword, nil
}

// DeleteUser removes the account and returns what was deleted, or nil when
// it was already gone.
func (s *Session) DeleteUser(ctx context.Context, id string) (*User, error) {
	var out struct {
		DeleteUserByID *User `json:"deleteUserById"`
	}
	err := s.Do(ctx, `mutation DeleteUser($id: ID!) { deleteUserById(id: $id) { `+userFields+` } }`,
		map[string]any{"id": id}, &out)
	if err != nil {
		return nil, err
	}
	return out.DeleteUserByID, nil
}
