package content

import (
	"strings"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/Zachkp/folio/internal/store"
)

// collection is a list of records stored whole under one key. Every write
// builds a new slice; stored slices are never modified.
type collection[T Record] struct {
	store *store.Store
	key   string
	def   []T
}

func (c collection[T]) all() []T {
	return store.Get(c.store, c.key, c.def)
}

func (c collection[T]) find(match func(T) bool) (T, bool) {
	for _, item := range c.all() {
		if match(item) {
			return item, true
		}
	}
	var zero T
	return zero, false
}

func (c collection[T]) byID(id string) (T, bool) {
	return c.find(func(item T) bool { return item.RecordID() == id })
}

func (c collection[T]) save(item T) {
	store.Modify(c.store, c.key, c.def, func(prev []T) []T {
		return upsert(prev, item)
	})
}

// saveUnless stores item unless conflict rejects the list current at the
// moment of the write. Nothing is written when it does.
func (c collection[T]) saveUnless(item T, conflict func(prev []T) error) error {
	var err error
	store.ModifyIf(c.store, c.key, c.def, func(prev []T) ([]T, bool) {
		if err = conflict(prev); err != nil {
			return nil, false
		}
		return upsert(prev, item), true
	})
	return err
}

// saveSlugged stores item unless another record already uses its slug.
func (c collection[T]) saveSlugged(record string, item T, slugOf func(T) string) error {
	return c.saveUnless(item, func(prev []T) error {
		if slugTaken(prev, item.RecordID(), slugOf(item), slugOf) {
			return invalid(record, "slug", "taken")
		}
		return nil
	})
}

func (c collection[T]) delete(id string) error {
	if _, ok := c.byID(id); !ok {
		return ErrNotFound
	}
	c.replace(func(prev []T) []T {
		next := make([]T, 0, len(prev))
		for _, item := range prev {
			if item.RecordID() != id {
				next = append(next, item)
			}
		}
		return next
	})
	return nil
}

func (c collection[T]) replace(fn func(prev []T) []T) {
	store.Modify(c.store, c.key, c.def, fn)
}

func upsert[T Record](items []T, item T) []T {
	next := make([]T, 0, len(items)+1)
	replaced := false
	for _, existing := range items {
		if existing.RecordID() == item.RecordID() {
			next = append(next, item)
			replaced = true
			continue
		}
		next = append(next, existing)
	}
	if !replaced {
		next = append(next, item)
	}
	return next
}

// slugTaken reports whether another record already uses slug.
func slugTaken[T Record](items []T, id, slug string, slugOf func(T) string) bool {
	for _, item := range items {
		if item.RecordID() != id && slugOf(item) == slug {
			return true
		}
	}
	return false
}

func newID() string {
	return uuid.NewString()
}

// latinMarks are the combining accents folded away by Slugify.
var latinMarks = &unicode.RangeTable{
	R16: []unicode.Range16{{Lo: 0x0300, Hi: 0x036f, Stride: 1}},
}

// Slugify turns a title into a URL path segment. Accents on Latin letters
// are dropped; letters and digits of other scripts are kept.
func Slugify(title string) string {
	lower := strings.ToLower(strings.TrimSpace(title))
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(latinMarks)), norm.NFC)
	folded, _, err := transform.String(fold, lower)
	if err != nil {
		folded = lower
	}

	var b strings.Builder
	dash := false
	for _, r := range folded {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
			dash = false
		case unicode.IsMark(r) && b.Len() > 0 && !dash:
			b.WriteRune(r)
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
