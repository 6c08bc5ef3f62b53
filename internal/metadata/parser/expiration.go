package parser

import (
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/sosodev/duration"

	"metafed/internal/metadata/models"
	"metafed/internal/platform/config"
)

// Expiration derives how long the metadata rooted at root stays fresh.
//
// An absolute validUntil wins and yields validUntil - now, both truncated to
// whole seconds; the result is not clamped and may be negative. Otherwise,
// when cfg.RespectCacheDuration is set, the declared cacheDuration (or
// cfg.DefaultCacheDuration when none is declared) is returned. The boolean is
// false when no hint can be derived, including unparseable values and roots
// that are not metadata descriptors.
func Expiration(root *etree.Element, cfg config.Expiry, now time.Time) (time.Duration, bool) {
	if !models.Is(root, models.NSMetadata, models.TagEntityDescriptor) &&
		!models.Is(root, models.NSMetadata, models.TagEntitiesDescriptor) {
		return 0, false
	}

	if v := root.SelectAttr(models.AttrValidUntil); v != nil {
		until, ok := models.ParseDateTime(v.Value)
		if !ok {
			return 0, false
		}
		return until.Truncate(time.Second).Sub(now.Truncate(time.Second)), true
	}

	if !cfg.RespectCacheDuration {
		return 0, false
	}
	declared := strings.TrimSpace(root.SelectAttrValue(models.AttrCacheDuration, ""))
	if declared == "" {
		declared = strings.TrimSpace(cfg.DefaultCacheDuration)
	}
	if declared == "" {
		return 0, false
	}
	d, err := duration.Parse(declared)
	if err != nil {
		return 0, false
	}
	return d.ToTimeDuration(), true
}
