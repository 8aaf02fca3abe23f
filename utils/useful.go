package utils

import (
	"regexp"
	"strconv"
	"strings"
	"sync"
)

func CombineStringsWithNewline(strs []string) string {
	return strings.Join(strs, "\n")
}

func SplitArgs(args string) []string {
	if args == "" {
		return []string{}
	}

	splittedArgs := strings.Split(args, ",")
	seen := make(map[string]bool)
	arr := []string{}
	for _, el := range splittedArgs {
		el = strings.TrimSpace(el)
		if el == "" {
			continue
		}
		if !seen[el] {
			seen[el] = true
			arr = append(arr, el)
		}
	}
	return arr
}

func GetLastPartOfUrl(url string) string {
	removedParams := strings.SplitN(url, "?", 2)
	splittedUrl := strings.Split(removedParams[0], "/")
	return splittedUrl[len(splittedUrl)-1]
}

var wholeWordCache sync.Map // lowercased word -> *regexp.Regexp

// Reports whether word occurs in s as a whole word, case-insensitively.
// Safe for concurrent use since post workers share the matcher.
func ContainsWholeWord(s, word string) bool {
	key := strings.ToLower(word)
	cached, ok := wholeWordCache.Load(key)
	if !ok {
		cached = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(key) + `\b`)
		wholeWordCache.Store(key, cached)
	}
	return cached.(*regexp.Regexp).MatchString(s)
}

var chunkedDigitsRegex = regexp.MustCompile(`(\d+|\D+)`)

// NaturalLess compares two strings so that embedded numbers are ordered
// numerically, e.g. "page2" < "page10".
func NaturalLess(a, b string) bool {
	aParts := chunkedDigitsRegex.FindAllString(strings.ToLower(a), -1)
	bParts := chunkedDigitsRegex.FindAllString(strings.ToLower(b), -1)
	for i := 0; i < len(aParts) && i < len(bParts); i++ {
		ap, bp := aParts[i], bParts[i]
		if ap == bp {
			continue
		}
		aNum, aErr := strconv.Atoi(ap)
		bNum, bErr := strconv.Atoi(bp)
		if aErr == nil && bErr == nil {
			return aNum < bNum
		}
		return ap < bp
	}
	return len(aParts) < len(bParts)
}

// Returns the first 10 chars of an API timestamp ("2006-01-02T15:04:05")
// or an empty string if the value is too short.
func DatePrefix(timestamp string) string {
	if len(timestamp) < 10 {
		return ""
	}
	return timestamp[:10]
}
