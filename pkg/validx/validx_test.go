package validx_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/aussiebroadwan/accounts/pkg/validx"
	"github.com/stretchr/testify/require"
)

func TestString(t *testing.T) {
	tests := []struct {
		name  string
		value string
		ok    bool
	}{
		{"minimum length", "abc", true},
		{"maximum length", strings.Repeat("a", 16), true},
		{"mixed case and digits", "Juuso23", true},
		{"too short", "ab", false},
		{"too long", strings.Repeat("a", 17), false},
		{"internal whitespace", "juuso 23", false},
		{"punctuation", "juuso_23", false},
		{"unicode letter", "jüüso", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validx.String("username", tt.value, 3, 16, true)
			if tt.ok {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			require.ErrorIs(t, err, validx.ErrInvalid)
		})
	}
}

func TestStringAllowsUnicodeWhenNotASCIIOnly(t *testing.T) {
	require.NoError(t, validx.String("firstname", "Jääskeläinen", 1, 50, false))
	require.Error(t, validx.String("firstname", "", 1, 50, false))
	require.Error(t, validx.String("firstname", strings.Repeat("ä", 51), 1, 50, false))
}

func TestStringExhaustiveAlphabet(t *testing.T) {
	// Every single byte outside [A-Za-z0-9] must be rejected inside an
	// otherwise valid username.
	for b := 0; b < 128; b++ {
		c := byte(b)
		isAlnum := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')

		err := validx.String("username", "ab"+string(c)+"cd", 3, 16, true)
		if isAlnum {
			require.NoError(t, err, "byte %q", c)
		} else {
			require.Error(t, err, "byte %q", c)
		}
	}
}

func TestEmail(t *testing.T) {
	valid := []string{
		"juuso@example.com",
		"first.last@sub.example.fi",
		"a_b-c@d-e.info",
	}
	for _, v := range valid {
		require.NoError(t, validx.Email("email", v), v)
	}

	invalid := []string{
		"",
		"juuso",
		"juuso@",
		"@example.com",
		"juuso@example",
		"juuso@example.c",
		"juuso@example.travel",
		"juu so@example.com",
		"juuso@exa mple.com",
	}
	for _, v := range invalid {
		require.ErrorIs(t, validx.Email("email", v), validx.ErrInvalid, v)
	}
}

func TestDate(t *testing.T) {
	tests := []struct {
		value string
		ok    bool
	}{
		{"", true},
		{"1990-05-17", true},
		{"1990-5-7", true},
		{"2020-02-29", true},
		{"2021-02-29", false},
		{"2021-02-30", false},
		{"2021-13-01", false},
		{"2021-00-10", false},
		{"17.05.1990", false},
		{"1990-05", false},
		{"1990-05-17-01", false},
		{"abcd-ef-gh", false},
		{"+2021-01-05", false},
		{"2021-+1-05", false},
		{"2021-01- 5", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			err := validx.Date("dateOfBirth", tt.value)
			if tt.ok {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, "invalid date form")
		})
	}
}

func TestBio(t *testing.T) {
	require.NoError(t, validx.Bio("bio", ""))
	require.NoError(t, validx.Bio("bio", "Likes hiking.\nLives by the sea!"))
	require.NoError(t, validx.Bio("bio", strings.Repeat("x", validx.MaxBioLength)))
	require.Error(t, validx.Bio("bio", strings.Repeat("x", validx.MaxBioLength+1)))
	require.Error(t, validx.Bio("bio", "bell\a"))
}

func TestLocation(t *testing.T) {
	require.NoError(t, validx.Location("location", ""))
	require.NoError(t, validx.Location("location", "Pori"))
	require.NoError(t, validx.Location("location", "Ylöjärvi"))
	require.NoError(t, validx.Location("location", "St. John's"))
	require.Error(t, validx.Location("location", "Pori 123"))
	require.Error(t, validx.Location("location", strings.Repeat("a", validx.MaxLocationLength+1)))
}

func TestTags(t *testing.T) {
	require.NoError(t, validx.Tags("tags", nil))
	require.NoError(t, validx.Tags("tags", []string{"a", "music"}))
	require.Error(t, validx.Tags("tags", []string{""}))
	require.Error(t, validx.Tags("tags", []string{strings.Repeat("t", validx.MaxTagLength+1)}))
	require.Error(t, validx.Tags("tags", make([]string, validx.MaxTags+1)))
}

func TestMatch(t *testing.T) {
	require.NoError(t, validx.Match("passwordconf", "secret123", "secret123"))
	require.ErrorContains(t, validx.Match("passwordconf", "secret123", "secret124"), "passwords do not match")
}

func TestOneOf(t *testing.T) {
	require.NoError(t, validx.OneOf("gender", "", "MALE", "FEMALE"))
	require.NoError(t, validx.OneOf("gender", "MALE", "MALE", "FEMALE"))
	require.Error(t, validx.OneOf("gender", "OTHER", "MALE", "FEMALE"))
}

func TestJoin(t *testing.T) {
	t.Run("all nil", func(t *testing.T) {
		require.NoError(t, validx.Join(nil, nil))
	})

	t.Run("aggregates in order", func(t *testing.T) {
		err := validx.Join(
			validx.String("username", "a", 3, 16, true),
			nil,
			validx.Email("email", "nope"),
			validx.Match("passwordconf", "a", "b"),
		)
		require.ErrorIs(t, err, validx.ErrInvalid)

		var errs validx.Errors
		require.True(t, errors.As(err, &errs))
		require.Equal(t, []string{"username", "email", "passwordconf"}, errs.Fields())
		require.Contains(t, err.Error(), "invalid username")
		require.Contains(t, err.Error(), "invalid email")
	})

	t.Run("flattens nested aggregates", func(t *testing.T) {
		inner := validx.Join(validx.Email("email", "x"), validx.Bio("bio", "\a"))
		err := validx.Join(inner, validx.Date("dateOfBirth", "x"))

		var errs validx.Errors
		require.True(t, errors.As(err, &errs))
		require.Len(t, errs, 3)
	})

	t.Run("wraps foreign errors", func(t *testing.T) {
		err := validx.Join(errors.New("boom"))
		require.ErrorIs(t, err, validx.ErrInvalid)
	})
}
