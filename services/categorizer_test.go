package services

import (
	"context"
	"errors"
	"testing"

	"github.com/LovationAdmin/expensewise-api/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapCache struct {
	data   map[string]models.IconKey
	getErr error
	sets   int
}

func newMapCache() *mapCache { return &mapCache{data: map[string]models.IconKey{}} }

func (c *mapCache) Get(_ context.Context, name string) (models.IconKey, error) {
	if c.getErr != nil {
		return "", c.getErr
	}
	icon, ok := c.data[iconCacheKey(name)]
	if !ok {
		return "", ErrCacheMiss
	}
	return icon, nil
}

func (c *mapCache) Set(_ context.Context, name string, icon models.IconKey) error {
	c.sets++
	c.data[iconCacheKey(name)] = icon
	return nil
}

type countingSuggester struct {
	icon  models.IconKey
	err   error
	calls int
}

func (s *countingSuggester) SuggestIcon(context.Context, string, []models.IconKey) (models.IconKey, error) {
	s.calls++
	return s.icon, s.err
}

func TestCategorizerService_CachesSuggestions(t *testing.T) {
	cache := newMapCache()
	next := &countingSuggester{icon: models.IconHealth}
	svc := NewCategorizerService(next, cache, quietLogger())
	ctx := context.Background()

	icon, err := svc.SuggestIcon(ctx, "Dentist", models.IconKeys())
	require.NoError(t, err)
	assert.Equal(t, models.IconHealth, icon)

	icon, err = svc.SuggestIcon(ctx, "  dentist ", models.IconKeys())
	require.NoError(t, err)
	assert.Equal(t, models.IconHealth, icon)
	assert.Equal(t, 1, next.calls)
	assert.Equal(t, 1, cache.sets)
}

func TestCategorizerService_FailuresAreNotCached(t *testing.T) {
	cache := newMapCache()
	next := &countingSuggester{err: errors.New("quota exceeded")}
	svc := NewCategorizerService(next, cache, quietLogger())

	_, err := svc.SuggestIcon(context.Background(), "Gym", models.IconKeys())
	require.Error(t, err)
	assert.Zero(t, cache.sets)
}

func TestCategorizerService_CacheErrorFallsThrough(t *testing.T) {
	cache := newMapCache()
	cache.getErr = errors.New("redis down")
	next := &countingSuggester{icon: models.IconEducation}
	svc := NewCategorizerService(next, cache, quietLogger())

	icon, err := svc.SuggestIcon(context.Background(), "Books", models.IconKeys())
	require.NoError(t, err)
	assert.Equal(t, models.IconEducation, icon)
}

func TestAICategorizer_ParsesAnswer(t *testing.T) {
	tests := []struct {
		answer  string
		want    models.IconKey
		wantErr bool
	}{
		{answer: "health", want: models.IconHealth},
		{answer: "  Transport.\n", want: models.IconTransport},
		{answer: "`housing`", want: models.IconHousing},
		{answer: "airplane", want: models.IconOther, wantErr: true},
		{answer: "I think groceries fits best", want: models.IconOther, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.answer, func(t *testing.T) {
			gen := &fakeGenerator{answer: tt.answer}
			icon, err := NewAICategorizer(gen).SuggestIcon(context.Background(), "Anything", models.IconKeys())
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrIconOutOfRange)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, icon)
			require.Len(t, gen.prompts, 1)
			assert.Contains(t, gen.prompts[0], `"Anything"`)
			assert.Contains(t, gen.prompts[0], "groceries, transport, housing, entertainment, health, education, other")
		})
	}
}

func TestAICategorizer_RespectsAvailableSubset(t *testing.T) {
	gen := &fakeGenerator{answer: "health"}
	_, err := NewAICategorizer(gen).SuggestIcon(context.Background(), "Gym",
		[]models.IconKey{models.IconEntertainment, models.IconOther})
	assert.ErrorIs(t, err, ErrIconOutOfRange)
}
