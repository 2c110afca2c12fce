package domain_test

import (
	"testing"

	"github.com/aussiebroadwan/accounts/internal/accounts/domain"
	"github.com/stretchr/testify/require"
)

func TestOptionalStates(t *testing.T) {
	tests := []struct {
		name   string
		opt    domain.Optional[string]
		set    bool
		null   bool
		merged string
	}{
		{"absent keeps current", domain.Optional[string]{}, false, false, "current"},
		{"null clears", domain.Null[string](), true, true, ""},
		{"value replaces", domain.Some("Pori"), true, false, "Pori"},
		{"empty value replaces", domain.Some(""), true, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.set, tt.opt.IsSet())
			require.Equal(t, tt.null, tt.opt.IsNull())
			require.Equal(t, tt.merged, tt.opt.Merge("current"))
		})
	}
}

func TestOptionalGet(t *testing.T) {
	v, ok := domain.Some([]string{"a"}).Get()
	require.True(t, ok)
	require.Equal(t, []string{"a"}, v)

	_, ok = domain.Null[[]string]().Get()
	require.False(t, ok)

	_, ok = domain.Optional[[]string]{}.Get()
	require.False(t, ok)

	require.Nil(t, domain.Null[[]string]().Merge([]string{"keep"}))
}

func TestAccountUpdateEmpty(t *testing.T) {
	require.True(t, domain.AccountUpdate{ID: "x"}.Empty())
	require.False(t, domain.AccountUpdate{ID: "x", Email: domain.Some("a@b.cd")}.Empty())
	require.False(t, domain.AccountUpdate{ID: "x", Lastname: domain.Null[string]()}.Empty())
}
