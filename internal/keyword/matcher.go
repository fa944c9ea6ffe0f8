package keyword

import (
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"unicode"
)

// Matcher decides whether a message matches a keyword phrase using
// whole-word AND semantics: every constituent word of the phrase must occur
// somewhere in the message as a whole word, in any order and position.
//
// Word patterns are literal-escaped before word-boundary assertions are
// added, so user-controlled phrases can never inject pattern syntax.
// Compiled patterns are cached per word; the cache is bounded only by the
// user's keyword vocabulary, which is small by construction.
type Matcher struct {
	mu     sync.Mutex
	cache  map[string]*regexp.Regexp
	logger *slog.Logger
}

// NewMatcher creates a Matcher.
func NewMatcher(logger *slog.Logger) *Matcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Matcher{
		cache:  make(map[string]*regexp.Regexp),
		logger: logger,
	}
}

// Matches reports whether every word of phrase occurs in textLower as a
// whole word. textLower must already be lower-cased; phrases are stored
// normalized, so no case folding happens here.
//
// A pattern-construction failure for any word logs a warning and makes the
// whole phrase non-matching for this message. Evaluation of other phrases
// is unaffected.
func (m *Matcher) Matches(textLower, phrase string) bool {
	words := strings.Fields(phrase)
	if len(words) == 0 {
		return false
	}

	for _, word := range words {
		re, err := m.pattern(word)
		if err != nil {
			m.logger.Warn("keyword pattern construction failed",
				"phrase", phrase,
				"word", word,
				"error", err,
			)
			return false
		}
		if !re.MatchString(textLower) {
			return false
		}
	}
	return true
}

// Boundary groups built against Unicode word characters (letters, digits,
// underscore). Go's \b is ASCII-only, which would treat an accented letter
// as a boundary — "promo" must not match inside "promoção".
const (
	boundaryBefore = `(?:^|[^\p{L}\p{N}_])`
	boundaryAfter  = `(?:[^\p{L}\p{N}_]|$)`
)

// pattern returns the compiled whole-word pattern for word, building and
// caching it on first use.
//
// A boundary group is only added at edges that are word characters, so
// words like "c++" stay matchable: requiring a non-word neighbor after the
// trailing "+" would be a boundary between two non-word characters.
func (m *Matcher) pattern(word string) (*regexp.Regexp, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if re, ok := m.cache[word]; ok {
		return re, nil
	}

	pat := regexp.QuoteMeta(word)
	runes := []rune(word)
	if isWordChar(runes[0]) {
		pat = boundaryBefore + pat
	}
	if isWordChar(runes[len(runes)-1]) {
		pat += boundaryAfter
	}

	re, err := regexp.Compile(pat)
	if err != nil {
		return nil, err
	}
	m.cache[word] = re
	return re, nil
}

// isWordChar mirrors the boundary groups above: Unicode letters and digits
// plus underscore count as word characters.
func isWordChar(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
