package validation

import (
	"fmt"
	"regexp"

	lru "github.com/hashicorp/golang-lru"
)

const (
	regexCacheSize   = 256
	maxPatternLength = 500
)

var (
	emailPattern = `[^\s@]+@[^\s@]+\.[^\s@]+`
	urlPattern   = `https?://[^\s/$.?#][^\s]*`
	phonePattern = `\+?[0-9][0-9\s\-().]{5,18}[0-9]`
)

// patterns caches compiled, anchored expressions keyed by source.
var patterns *lru.Cache

func init() {
	c, err := lru.New(regexCacheSize)
	if err != nil {
		panic("validation: create regex cache: " + err.Error())
	}
	patterns = c
}

// compilePattern returns a regexp that must match the whole input.
func compilePattern(pattern string) (*regexp.Regexp, error) {
	if re, ok := patterns.Get(pattern); ok {
		return re.(*regexp.Regexp), nil
	}
	if len(pattern) > maxPatternLength {
		return nil, fmt.Errorf("pattern too long (max %d chars): %d chars", maxPatternLength, len(pattern))
	}
	re, err := regexp.Compile(`^(?:` + pattern + `)$`)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	patterns.Add(pattern, re)
	return re, nil
}
