package reader

import (
	"net/http"
	"regexp"
	"strings"
)

var pathPattern = regexp.MustCompile(`^(/[-\w:@&?=+,.!/~*'%$_;()]*)?$`)

// ValidatePath reports whether a request path is acceptable.
//
// The path must consist of path-safe characters. Paths with ".." tokens are rejected
// when (slashes - double slashes - 1) <= dot-dots, counting overlapping occurrences.
// This is a compatibility heuristic, not a traversal-proof check.
func ValidatePath(path string) bool {
	if path == "" || !pathPattern.MatchString(path) {
		return false
	}

	dotDots := countToken(path, "..")
	if dotDots == 0 {
		return true
	}

	slashes := countToken(path, "/")
	doubleSlashes := countToken(path, "//")
	return slashes-doubleSlashes-1 > dotDots
}

// countToken counts occurrences of token in s, overlapping ones included.
func countToken(s, token string) int {
	count := 0
	for idx := 0; ; {
		i := strings.Index(s[idx:], token)
		if i < 0 {
			return count
		}
		count++
		idx += i + 1
	}
}

// PathValidator returns a filter that answers requests with invalid paths with status
// and never calls the next handler. onReject, when set, is called with the rejected path.
func PathValidator(status int, onReject func(path string)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := r.URL.EscapedPath()
			if !ValidatePath(path) {
				if onReject != nil {
					onReject(path)
				}
				w.WriteHeader(status)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
