package services

import (
	"context"
	"errors"

	"github.com/LovationAdmin/expensewise-api/models"

	"github.com/sirupsen/logrus"
)

// CategorizerService puts a cache in front of an IconSuggester. Cache
// failures are logged and otherwise ignored.
type CategorizerService struct {
	next  IconSuggester
	cache IconCache
	log   logrus.FieldLogger
}

func NewCategorizerService(next IconSuggester, cache IconCache, log logrus.FieldLogger) *CategorizerService {
	return &CategorizerService{next: next, cache: cache, log: log.WithField("component", "categorizer")}
}

func (s *CategorizerService) SuggestIcon(ctx context.Context, categoryName string, available []models.IconKey) (models.IconKey, error) {
	if s.cache != nil {
		icon, err := s.cache.Get(ctx, categoryName)
		switch {
		case err == nil && containsIcon(available, icon):
			s.log.WithField("category", categoryName).Debug("Icon cache hit")
			return icon, nil
		case err != nil && !errors.Is(err, ErrCacheMiss):
			s.log.WithError(err).Warn("Icon cache read failed")
		}
	}

	if s.next == nil {
		return models.IconOther, ErrAINotConfigured
	}
	icon, err := s.next.SuggestIcon(ctx, categoryName, available)
	if err != nil {
		return models.IconOther, err
	}

	if s.cache != nil {
		// Detached from cancellation: the suggestion timeout may already have fired.
		if err := s.cache.Set(context.WithoutCancel(ctx), categoryName, icon); err != nil {
			s.log.WithError(err).Warn("Icon cache write failed")
		}
	}
	return icon, nil
}

func containsIcon(list []models.IconKey, k models.IconKey) bool {
	for _, v := range list {
		if v == k {
			return true
		}
	}
	return false
}
