package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/LovationAdmin/expensewise-api/models"
)

// TextGenerator sends a single prompt to a language model and returns the
// text it answered with.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Provider() string
}

// IconSuggester picks an icon for a new category name. Implementations may
// fail or be slow; the ledger falls back to models.IconOther.
type IconSuggester interface {
	SuggestIcon(ctx context.Context, categoryName string, available []models.IconKey) (models.IconKey, error)
}

// IconSuggesterFunc adapts a function to IconSuggester.
type IconSuggesterFunc func(ctx context.Context, categoryName string, available []models.IconKey) (models.IconKey, error)

func (f IconSuggesterFunc) SuggestIcon(ctx context.Context, categoryName string, available []models.IconKey) (models.IconKey, error) {
	return f(ctx, categoryName, available)
}

var ErrIconOutOfRange = errors.New("suggested icon is not one of the available icons")

// AICategorizer asks a TextGenerator to choose an icon key.
type AICategorizer struct {
	gen TextGenerator
}

func NewAICategorizer(gen TextGenerator) *AICategorizer {
	return &AICategorizer{gen: gen}
}

func iconPrompt(categoryName string, available []models.IconKey) string {
	names := make([]string, len(available))
	for i, k := range available {
		names[i] = string(k)
	}
	return fmt.Sprintf(`
From the following list of available icon names, which one best represents the category "%s"?
Available icons: %s.
Please respond with ONLY the single most appropriate icon name from the list. Do not add any explanation or punctuation.
`, categoryName, strings.Join(names, ", "))
}

// SuggestIcon returns ErrIconOutOfRange when the model answers with
// anything outside available.
func (a *AICategorizer) SuggestIcon(ctx context.Context, categoryName string, available []models.IconKey) (models.IconKey, error) {
	if a.gen == nil {
		return models.IconOther, ErrAINotConfigured
	}
	answer, err := a.gen.Generate(ctx, iconPrompt(categoryName, available))
	if err != nil {
		return models.IconOther, err
	}

	key, ok := models.ParseIconKey(answer)
	if !ok {
		return models.IconOther, fmt.Errorf("%w: %q", ErrIconOutOfRange, answer)
	}
	for _, k := range available {
		if k == key {
			return key, nil
		}
	}
	return models.IconOther, fmt.Errorf("%w: %q", ErrIconOutOfRange, answer)
}

type iconResult struct {
	key models.IconKey
	err error
}

// resolveIcon never fails: a missing suggester, an error, a timeout or an
// answer outside the enumeration all give models.IconOther. The select on
// ctx.Done() bounds the wait even for suggesters that ignore ctx.
func resolveIcon(ctx context.Context, s IconSuggester, name string, timeout time.Duration) (models.IconKey, error) {
	if s == nil {
		return models.IconOther, ErrAINotConfigured
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan iconResult, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- iconResult{models.IconOther, fmt.Errorf("icon suggester panicked: %v", p)}
			}
		}()
		key, err := s.SuggestIcon(ctx, name, models.IconKeys())
		done <- iconResult{key, err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return models.IconOther, r.err
		}
		if !r.key.Valid() {
			return models.IconOther, fmt.Errorf("%w: %q", ErrIconOutOfRange, r.key)
		}
		return r.key, nil
	case <-ctx.Done():
		return models.IconOther, ctx.Err()
	}
}
