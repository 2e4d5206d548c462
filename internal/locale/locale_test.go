package locale

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	lkerrors "github.com/conneroisu/lenskit/internal/errors"
)

func TestLocalize(t *testing.T) {
	tests := []struct {
		lang string
		key  string
		args []any
		want string
	}{
		{"en", "counter.increment", nil, "Increment"},
		{"en", "counter.value", []any{3}, "Count: 3"},
		{"de", "counter.increment", nil, "Erhöhen"},
		{"de", "list.selected", []any{2}, "Ausgewählt: 2"},
		{"en", "remove-bookmark", []any{"test"}, `Remove bookmark "test"`},
		{"en", "not a key", nil, "not a key"},
	}

	for _, tt := range tests {
		t.Run(tt.lang+"/"+tt.key, func(t *testing.T) {
			l, err := New(tt.lang, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, l.Localize(tt.key, tt.args...))
		})
	}
}

func TestExtraCatalogsOverride(t *testing.T) {
	l, err := New("fr", map[string]map[string]string{
		"fr": {"counter.increment": "Incrémenter"},
	})
	require.NoError(t, err)
	assert.Equal(t, language.French, l.Language())
	assert.Equal(t, "Incrémenter", l.Localize("counter.increment"))
}

func TestInvalidLanguage(t *testing.T) {
	_, err := New("!!", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, lkerrors.ErrConfigInvalid)
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "Static List", Title("static list"))
	assert.Equal(t, "en", Default().Language().String())
}
