package langpref

import (
	"context"
	"errors"
	"log/slog"
	"strings"
)

// ProfileClient looks up a user's declared platform locale. May fail for
// users who blocked the channel; the resolver swallows that.
type ProfileClient interface {
	ProfileLanguage(ctx context.Context, userID string) (string, error)
}

// Resolver turns a user id into a language tag. Precedence: stored detected
// tag, then platform profile locale (when a ProfileClient is configured),
// then the fixed fallback. Resolve is total: it never fails and never
// returns an empty tag.
type Resolver struct {
	store    Store
	profiles ProfileClient
	fallback string
	logger   *slog.Logger
}

// NewResolver builds the resolution chain. profiles may be nil to disable
// profile lookup; fallback must be a non-empty tag.
func NewResolver(log *slog.Logger, store Store, profiles ProfileClient, fallback string) *Resolver {
	if log == nil {
		log = slog.Default()
	}
	fallback = NormalizeTag(fallback)
	if fallback == "" {
		fallback = "ja"
	}
	return &Resolver{
		store:    store,
		profiles: profiles,
		fallback: fallback,
		logger:   log.With(slog.String("component", "langpref")),
	}
}

func (r *Resolver) Resolve(ctx context.Context, userID string) string {
	if lang, err := r.store.Get(ctx, userID); err == nil {
		return lang
	} else if !errors.Is(err, ErrNotFound) {
		r.logger.Warn("preference lookup failed",
			slog.String("user_id", userID), slog.Any("error", err))
	}

	if r.profiles != nil {
		locale, err := r.profiles.ProfileLanguage(ctx, userID)
		if err != nil {
			r.logger.Warn("profile lookup failed",
				slog.String("user_id", userID), slog.Any("error", err))
		} else if tag := NormalizeTag(locale); tag != "" {
			return tag
		}
	}

	return r.fallback
}

// NormalizeTag reduces a locale like "ko-KR" or "en_US" to its lowercase
// primary subtag, or empty when the input holds no usable tag.
func NormalizeTag(locale string) string {
	tag := strings.ToLower(strings.TrimSpace(locale))
	if idx := strings.IndexAny(tag, "-_"); idx >= 0 {
		tag = tag[:idx]
	}
	if len(tag) < 2 || len(tag) > 3 {
		return ""
	}
	for _, r := range tag {
		if r < 'a' || r > 'z' {
			return ""
		}
	}
	return tag
}
