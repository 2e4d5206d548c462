package lens

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type address struct {
	City string
	Zip  []int
}

type person struct {
	Name string
	Home address
	Tags []string
}

type personHome struct{}

func (personHome) View(p *person) *address { return &p.Home }

type personTags struct{}

func (personTags) View(p *person) *[]string { return &p.Tags }

type addressCity struct{}

func (addressCity) View(a *address) *string { return &a.City }

func TestThenProjectsThroughBoth(t *testing.T) {
	p := &person{Name: "ada", Home: address{City: "London"}}
	city := Then[person, address, string](personHome{}, addressCity{})

	got := city.View(p)
	require.NotNil(t, got)
	assert.Equal(t, "London", *got)
	assert.Same(t, &p.Home.City, got, "composed view points into the source")
}

func TestViewIsZeroCopy(t *testing.T) {
	p := &person{Home: address{City: "Paris"}}
	city := Then[person, address, string](personHome{}, addressCity{})

	*city.View(p) = "Lyon"
	assert.Equal(t, "Lyon", p.Home.City)
}

func TestIndexLens(t *testing.T) {
	p := &person{Tags: []string{"first", "second"}}

	second := At[person, string](personTags{}, 1)
	got, ok := Get[person, string](second, p)
	require.True(t, ok)
	assert.Equal(t, "second", got)

	missing := At[person, string](personTags{}, 5)
	assert.Nil(t, missing.View(p), "out of range is absent, not a panic")
	_, ok = Get[person, string](missing, p)
	assert.False(t, ok)

	assert.Nil(t, Index[string]{I: -1}.View(&p.Tags))
	assert.Nil(t, Index[string]{I: 0}.View(nil))
}

func TestFuncLens(t *testing.T) {
	name := New("person.name", func(p *person) *string { return &p.Name })
	p := &person{Name: "grace"}

	assert.Equal(t, "grace", *name.View(p))
	assert.Nil(t, name.View(nil))
	assert.Same(t, p, Identity[person]{}.View(p))
}

func TestKeyOf(t *testing.T) {
	tests := []struct {
		name string
		a, b any
		same bool
	}{
		{"same field lens type", personHome{}, personHome{}, true},
		{"different field lens types", personHome{}, personTags{}, false},
		{"index lenses with same index", Index[string]{I: 1}, Index[string]{I: 1}, true},
		{"index lenses with different index", Index[string]{I: 1}, Index[string]{I: 2}, false},
		{
			"composed index lenses differ by index",
			At[person, string](personTags{}, 0),
			At[person, string](personTags{}, 1),
			false,
		},
		{
			"composed lenses with equal parts",
			Then[person, address, string](personHome{}, addressCity{}),
			Then[person, address, string](personHome{}, addressCity{}),
			true,
		},
		{
			"func lenses keyed by name",
			New("a", func(p *person) *string { return &p.Name }),
			New("a", func(p *person) *string { return &p.Home.City }),
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ka, kb := KeyOf(tt.a), KeyOf(tt.b)
			if tt.same {
				assert.Equal(t, ka, kb)
			} else {
				assert.NotEqual(t, ka, kb)
			}
		})
	}
}

func TestKeyString(t *testing.T) {
	assert.Contains(t, KeyOf(personHome{}).String(), "personHome")
	assert.Contains(t, KeyOf(Index[int]{I: 3}).String(), "[3]")
	assert.Equal(t, "<nil>", Key{}.String())
}
