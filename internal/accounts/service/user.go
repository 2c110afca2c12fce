package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aussiebroadwan/accounts/internal/accounts/domain"
	"github.com/aussiebroadwan/accounts/internal/accounts/store"
	"github.com/aussiebroadwan/accounts/pkg/cryptox"
	"github.com/aussiebroadwan/accounts/pkg/idx"
	"github.com/aussiebroadwan/accounts/pkg/slogx"
	"github.com/aussiebroadwan/accounts/pkg/validx"
)

const (
	minUsername = 3
	maxUsername = 16
	minName     = 1
	maxName     = 50
	minPassword = 8
	maxPassword = cryptox.MaxPasswordBytes
)

// UserService is the only place plaintext user data meets the store: names
// and date of birth are encrypted on the way in and decrypted on the way
// out.
type UserService struct {
	Store       store.Store
	Cipher      *cryptox.FieldCipher
	Credentials *CredentialManager

	// Clock defaults to time.Now.
	Clock func() time.Time
}

func (s *UserService) now() time.Time {
	if s.Clock != nil {
		return s.Clock().UTC()
	}
	return time.Now().UTC()
}

// GetCount returns the number of stored users.
func (s *UserService) GetCount(ctx context.Context) (int, error) {
	return s.Store.Users().Count(ctx)
}

// GetAll returns every user that can be decrypted. Records that fail to
// decrypt are skipped with a warning.
func (s *UserService) GetAll(ctx context.Context) ([]domain.User, error) {
	l := slogx.FromContext(ctx)

	recs, err := s.Store.Users().Scan(ctx, store.Filter{})
	if err != nil {
		return nil, err
	}

	users := make([]domain.User, 0, len(recs))
	for _, rec := range recs {
		u, err := s.decrypt(rec)
		if errors.Is(err, cryptox.ErrCipher) {
			l.Warn("skipping undecryptable user", slog.String("user_id", rec.ID), slog.Any("err", err))
			continue
		}
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, nil
}

// FindByUsername matches case-insensitively. It returns nil when no user
// has the name.
func (s *UserService) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	slogx.FromContext(ctx).Debug("find user by username", slog.String("username", username))
	if username == "" {
		return nil, nil
	}
	return s.findOne(ctx, store.Filter{SearchUsername: searchKey(username)})
}

// FindByEmail matches case-insensitively. It returns nil when no user has
// the address.
func (s *UserService) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	slogx.FromContext(ctx).Debug("find user by email")
	if email == "" {
		return nil, nil
	}
	return s.findOne(ctx, store.Filter{SearchEmail: searchKey(email)})
}

// FindByID returns nil when id does not exist.
func (s *UserService) FindByID(ctx context.Context, id string) (*domain.User, error) {
	slogx.FromContext(ctx).Debug("find user by id", slog.String("user_id", id))

	rec, err := s.Store.Users().Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	u, err := s.decrypt(rec)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// AddUser validates and stores a new account. The returned user is built
// from the submitted plaintext.
func (s *UserService) AddUser(ctx context.Context, in domain.NewUser) (domain.User, error) {
	if err := validx.Join(
		validx.String("username", in.Username, minUsername, maxUsername, true),
		validx.String("firstname", in.Firstname, minName, maxName, false),
		validx.String("lastname", in.Lastname, minName, maxName, false),
		validx.Email("email", in.Email),
		checkPassword(in.Password),
		validx.Match("passwordconf", in.Password, in.PasswordConf),
	); err != nil {
		return domain.User{}, err
	}

	email := strings.ToLower(in.Email)
	searchUsername := searchKey(in.Username)

	if err := s.checkConflict(ctx, "", searchUsername, email); err != nil {
		return domain.User{}, err
	}

	hash, err := s.Credentials.HashPassword(ctx, in.Password)
	if err != nil {
		return domain.User{}, err
	}
	firstname, lastname, err := s.encryptNames(in.Firstname, in.Lastname)
	if err != nil {
		return domain.User{}, err
	}

	now := s.now()
	rec := store.Record{
		ID:             idx.NewAt(now).String(),
		Username:       in.Username,
		SearchUsername: searchUsername,
		Email:          email,
		SearchEmail:    email,
		Firstname:      firstname,
		Lastname:       lastname,
		PasswordHash:   hash,
		ProfileInfo:    store.ProfileInfo{Tags: []string{}},
		FriendList:     []store.Friend{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.Store.Users().Insert(ctx, rec); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, s.identifyConflict(ctx, "", searchUsername, email)
		}
		return domain.User{}, err
	}

	slogx.FromContext(ctx).Info("user created", slog.String("user_id", rec.ID))

	return domain.User{
		ID:          rec.ID,
		Username:    in.Username,
		Firstname:   in.Firstname,
		Lastname:    in.Lastname,
		Email:       email,
		ProfileInfo: domain.ProfileInfo{Tags: []string{}},
		FriendList:  []domain.Friend{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// DeleteByID removes a user and returns what was removed. A missing id is
// not an error: it returns nil, nil.
func (s *UserService) DeleteByID(ctx context.Context, id string) (*domain.User, error) {
	u, err := s.FindByID(ctx, id)
	if err != nil || u == nil {
		return nil, err
	}

	if err := s.Store.Users().Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	slogx.FromContext(ctx).Info("user deleted", slog.String("user_id", id))
	return u, nil
}

// UpdateAccount rewrites the identity attribute group. Only the fields set
// in up are validated and changed.
func (s *UserService) UpdateAccount(ctx context.Context, up domain.AccountUpdate) (domain.User, error) {
	rec, err := s.getRecord(ctx, up.ID)
	if err != nil {
		return domain.User{}, err
	}
	current, err := s.decrypt(rec)
	if err != nil {
		return domain.User{}, err
	}

	var checks []error
	if up.Username.IsSet() {
		v, _ := up.Username.Get()
		checks = append(checks, validx.String("username", v, minUsername, maxUsername, true))
	}
	if up.Firstname.IsSet() {
		v, _ := up.Firstname.Get()
		checks = append(checks, validx.String("firstname", v, minName, maxName, false))
	}
	if up.Lastname.IsSet() {
		v, _ := up.Lastname.Get()
		checks = append(checks, validx.String("lastname", v, minName, maxName, false))
	}
	if up.Email.IsSet() {
		v, _ := up.Email.Get()
		checks = append(checks, validx.Email("email", v))
	}
	if err := validx.Join(checks...); err != nil {
		return domain.User{}, err
	}
	if up.Empty() {
		return current, nil
	}

	next := current
	next.Username = up.Username.Merge(current.Username)
	next.Firstname = up.Firstname.Merge(current.Firstname)
	next.Lastname = up.Lastname.Merge(current.Lastname)
	next.Email = strings.ToLower(up.Email.Merge(current.Email))

	searchUsername := searchKey(next.Username)
	if searchUsername != rec.SearchUsername || next.Email != rec.SearchEmail {
		changedUsername, changedEmail := "", ""
		if searchUsername != rec.SearchUsername {
			changedUsername = searchUsername
		}
		if next.Email != rec.SearchEmail {
			changedEmail = next.Email
		}
		if err := s.checkConflict(ctx, up.ID, changedUsername, changedEmail); err != nil {
			return domain.User{}, err
		}
	}

	firstname, lastname, err := s.encryptNames(next.Firstname, next.Lastname)
	if err != nil {
		return domain.User{}, err
	}

	now := s.now()
	err = s.Store.Users().Update(ctx, up.ID, store.Attributes{
		Account: &store.Account{
			Username:       next.Username,
			SearchUsername: searchUsername,
			Email:          next.Email,
			SearchEmail:    next.Email,
			Firstname:      firstname,
			Lastname:       lastname,
		},
		UpdatedAt: now,
	})
	switch {
	case errors.Is(err, store.ErrNotFound):
		return domain.User{}, ErrUserNotFound
	case errors.Is(err, store.ErrAlreadyExists):
		return domain.User{}, s.identifyConflict(ctx, up.ID, searchUsername, next.Email)
	case err != nil:
		return domain.User{}, err
	}

	next.UpdatedAt = now
	return next, nil
}

// UpdateInfo merges up over the stored profile info and writes it back as
// one attribute.
func (s *UserService) UpdateInfo(ctx context.Context, up domain.InfoUpdate) (domain.ProfileInfo, error) {
	var checks []error
	if v, ok := up.Location.Get(); ok {
		checks = append(checks, validx.Location("location", v))
	}
	if v, ok := up.Gender.Get(); ok {
		checks = append(checks, validx.OneOf("gender", string(v), enumStrings(domain.Genders)...))
	}
	if v, ok := up.MaritalStatus.Get(); ok {
		checks = append(checks, validx.OneOf("maritalStatus", string(v), enumStrings(domain.MaritalStatuses)...))
	}
	if v, ok := up.DateOfBirth.Get(); ok {
		checks = append(checks, validx.Date("dateOfBirth", v))
	}
	if v, ok := up.Bio.Get(); ok {
		checks = append(checks, validx.Bio("bio", v))
	}
	if v, ok := up.Tags.Get(); ok {
		checks = append(checks, validx.Tags("tags", v))
	}
	if err := validx.Join(checks...); err != nil {
		return domain.ProfileInfo{}, err
	}

	rec, err := s.getRecord(ctx, up.ID)
	if err != nil {
		return domain.ProfileInfo{}, err
	}
	current, err := s.decryptInfo(rec.ProfileInfo)
	if err != nil {
		return domain.ProfileInfo{}, err
	}

	merged := domain.ProfileInfo{
		Location:      up.Location.Merge(current.Location),
		Gender:        up.Gender.Merge(current.Gender),
		MaritalStatus: up.MaritalStatus.Merge(current.MaritalStatus),
		DateOfBirth:   up.DateOfBirth.Merge(current.DateOfBirth),
		ProfileLikes:  current.ProfileLikes,
		Bio:           up.Bio.Merge(current.Bio),
		Tags:          up.Tags.Merge(current.Tags),
	}
	if merged.Tags == nil {
		merged.Tags = []string{}
	}

	dob, err := s.Cipher.Encrypt(merged.DateOfBirth)
	if err != nil {
		return domain.ProfileInfo{}, err
	}
	info := store.ProfileInfo{
		Location:      merged.Location,
		Gender:        string(merged.Gender),
		MaritalStatus: string(merged.MaritalStatus),
		DateOfBirth:   dob,
		ProfileLikes:  merged.ProfileLikes,
		Bio:           merged.Bio,
		Tags:          merged.Tags,
	}

	err = s.Store.Users().Update(ctx, up.ID, store.Attributes{ProfileInfo: &info, UpdatedAt: s.now()})
	if errors.Is(err, store.ErrNotFound) {
		return domain.ProfileInfo{}, ErrUserNotFound
	}
	if err != nil {
		return domain.ProfileInfo{}, err
	}
	return merged, nil
}

// UpdatePassword re-hashes and stores a new password. Nothing is written
// unless both the length and the confirmation check pass.
func (s *UserService) UpdatePassword(ctx context.Context, up domain.PasswordUpdate) (domain.User, error) {
	if err := validx.Join(
		checkPassword(up.Password),
		validx.Match("passwordconf", up.Password, up.PasswordConf),
	); err != nil {
		return domain.User{}, err
	}

	rec, err := s.getRecord(ctx, up.ID)
	if err != nil {
		return domain.User{}, err
	}
	u, err := s.decrypt(rec)
	if err != nil {
		return domain.User{}, err
	}

	hash, err := s.Credentials.HashPassword(ctx, up.Password)
	if err != nil {
		return domain.User{}, err
	}

	now := s.now()
	err = s.Store.Users().Update(ctx, up.ID, store.Attributes{PasswordHash: &hash, UpdatedAt: now})
	if errors.Is(err, store.ErrNotFound) {
		return domain.User{}, ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, err
	}

	u.UpdatedAt = now
	return u, nil
}

// Login checks a password against the user named by identifier, which is
// an email address when it contains "@" and a username otherwise.
func (s *UserService) Login(ctx context.Context, identifier, password string) (domain.Token, error) {
	l := slogx.FromContext(ctx)

	filter := store.Filter{SearchUsername: searchKey(identifier)}
	if strings.Contains(identifier, "@") {
		filter = store.Filter{SearchEmail: searchKey(identifier)}
	}

	var rec store.Record
	found := false
	if identifier != "" {
		recs, err := s.Store.Users().Scan(ctx, filter)
		if err != nil {
			return domain.Token{}, err
		}
		if len(recs) > 0 {
			rec, found = recs[0], true
		}
	}

	if !found {
		// Same bcrypt cost as a real mismatch.
		s.Credentials.VerifyPassword(ctx, password, "")
		l.Info("login failed: unknown identifier")
		return domain.Token{}, ErrInvalidCredentials
	}
	if !s.Credentials.VerifyPassword(ctx, password, rec.PasswordHash) {
		l.Info("login failed: wrong password", slog.String("user_id", rec.ID))
		return domain.Token{}, ErrInvalidCredentials
	}

	token, err := s.Credentials.IssueToken(ctx, domain.User{
		ID:       rec.ID,
		Username: rec.Username,
		Email:    rec.Email,
	}, s.now())
	if err != nil {
		return domain.Token{}, fmt.Errorf("issue token: %w", err)
	}

	l.Info("login succeeded", slog.String("user_id", rec.ID))
	return token, nil
}

func (s *UserService) getRecord(ctx context.Context, id string) (store.Record, error) {
	rec, err := s.Store.Users().Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return store.Record{}, ErrUserNotFound
	}
	return rec, err
}

func (s *UserService) findOne(ctx context.Context, f store.Filter) (*domain.User, error) {
	recs, err := s.Store.Users().Scan(ctx, f)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, nil
	}

	u, err := s.decrypt(recs[0])
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// checkConflict returns a *ConflictError when a non-empty key is owned by a
// user other than self.
func (s *UserService) checkConflict(ctx context.Context, self, searchUsername, searchEmail string) error {
	taken := func(f store.Filter) (bool, error) {
		recs, err := s.Store.Users().Scan(ctx, f)
		if err != nil {
			return false, err
		}
		for _, r := range recs {
			if r.ID != self {
				return true, nil
			}
		}
		return false, nil
	}

	if searchUsername != "" {
		ok, err := taken(store.Filter{SearchUsername: searchUsername})
		if err != nil {
			return err
		}
		if ok {
			return &ConflictError{Field: "username"}
		}
	}
	if searchEmail != "" {
		ok, err := taken(store.Filter{SearchEmail: searchEmail})
		if err != nil {
			return err
		}
		if ok {
			return &ConflictError{Field: "email"}
		}
	}
	return nil
}

// identifyConflict names the colliding key after the store rejected a
// write that passed the pre-check.
func (s *UserService) identifyConflict(ctx context.Context, self, searchUsername, searchEmail string) error {
	var ce *ConflictError
	if err := s.checkConflict(ctx, self, searchUsername, searchEmail); errors.As(err, &ce) {
		return ce
	}
	return &ConflictError{}
}

func (s *UserService) encryptNames(first, last string) (string, string, error) {
	f, err := s.Cipher.Encrypt(first)
	if err != nil {
		return "", "", err
	}
	l, err := s.Cipher.Encrypt(last)
	if err != nil {
		return "", "", err
	}
	return f, l, nil
}

func (s *UserService) decrypt(rec store.Record) (domain.User, error) {
	first, err := s.Cipher.Decrypt(rec.Firstname)
	if err != nil {
		return domain.User{}, fmt.Errorf("decrypt firstname of %s: %w", rec.ID, err)
	}
	last, err := s.Cipher.Decrypt(rec.Lastname)
	if err != nil {
		return domain.User{}, fmt.Errorf("decrypt lastname of %s: %w", rec.ID, err)
	}
	info, err := s.decryptInfo(rec.ProfileInfo)
	if err != nil {
		return domain.User{}, fmt.Errorf("decrypt profile of %s: %w", rec.ID, err)
	}

	friends := make([]domain.Friend, 0, len(rec.FriendList))
	for _, f := range rec.FriendList {
		friends = append(friends, domain.Friend{UserID: f.UserID, Status: f.Status})
	}

	return domain.User{
		ID:          rec.ID,
		Username:    rec.Username,
		Firstname:   first,
		Lastname:    last,
		Email:       rec.Email,
		ProfileInfo: info,
		FriendList:  friends,
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.UpdatedAt,
	}, nil
}

func (s *UserService) decryptInfo(p store.ProfileInfo) (domain.ProfileInfo, error) {
	dob, err := s.Cipher.Decrypt(p.DateOfBirth)
	if err != nil {
		return domain.ProfileInfo{}, err
	}

	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}

	return domain.ProfileInfo{
		Location:      p.Location,
		Gender:        domain.Gender(p.Gender),
		MaritalStatus: domain.MaritalStatus(p.MaritalStatus),
		DateOfBirth:   dob,
		ProfileLikes:  p.ProfileLikes,
		Bio:           p.Bio,
		Tags:          tags,
	}, nil
}

func checkPassword(password string) error {
	if err := validx.String("password", password, minPassword, maxPassword, false); err != nil {
		return err
	}
	if len(password) > cryptox.MaxPasswordBytes {
		return &validx.FieldError{Field: "password", Reason: fmt.Sprintf("must be at most %d bytes", cryptox.MaxPasswordBytes)}
	}
	return nil
}

func searchKey(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func enumStrings[T ~string](values []T) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}
