package domain

// NewUser is the unvalidated input to account creation.
type NewUser struct {
	Username     string
	Firstname    string
	Lastname     string
	Email        string
	Password     string
	PasswordConf string
}

// AccountUpdate changes identity fields. Absent fields are left alone.
type AccountUpdate struct {
	ID        string
	Username  Optional[string]
	Firstname Optional[string]
	Lastname  Optional[string]
	Email     Optional[string]
}

// Empty reports whether the update carries no fields.
func (u AccountUpdate) Empty() bool {
	return !u.Username.IsSet() && !u.Firstname.IsSet() && !u.Lastname.IsSet() && !u.Email.IsSet()
}

// InfoUpdate is merged over the stored ProfileInfo.
type InfoUpdate struct {
	ID            string
	Location      Optional[string]
	Gender        Optional[Gender]
	MaritalStatus Optional[MaritalStatus]
	DateOfBirth   Optional[string]
	Bio           Optional[string]
	Tags          Optional[[]string]
}

type PasswordUpdate struct {
	ID           string
	Password     string
	PasswordConf string
}
