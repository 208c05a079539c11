// Package paths holds the pure helpers for folder names and
// materialized paths. No I/O, no state.
package paths

import (
	"strings"
	"unicode/utf8"

	"github.com/File-Sharing-BondBridg/Drive-Service/internal/apperr"
)

const (
	// MaxNameLen caps a single folder or file name.
	MaxNameLen = 255
	// MaxPathLen caps a full materialized path.
	MaxPathLen = 1024
	// MaxDepth is the hard ceiling on non-empty path segments.
	MaxDepth = 20
)

const forbiddenChars = `<>:"|?*/\`

var reservedNames = map[string]struct{}{
	"con": {}, "prn": {}, "aux": {}, "nul": {},
	"com1": {}, "com2": {}, "com3": {}, "com4": {}, "com5": {},
	"com6": {}, "com7": {}, "com8": {}, "com9": {},
	"lpt1": {}, "lpt2": {}, "lpt3": {}, "lpt4": {}, "lpt5": {},
	"lpt6": {}, "lpt7": {}, "lpt8": {}, "lpt9": {},
}

// ValidateName trims raw and checks it against the naming rules.
// It returns the cleaned name or an InvalidName error.
func ValidateName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", apperr.New(apperr.KindInvalidName, "name is empty")
	}
	if utf8.RuneCountInString(name) > MaxNameLen {
		return "", apperr.New(apperr.KindInvalidName, "name exceeds %d characters", MaxNameLen)
	}
	for _, r := range name {
		if r < 0x20 || r == 0x7f {
			return "", apperr.New(apperr.KindInvalidName, "name contains control characters")
		}
		if strings.ContainsRune(forbiddenChars, r) {
			return "", apperr.New(apperr.KindInvalidName, "name contains forbidden character %q", r)
		}
	}
	if strings.Contains(name, "..") {
		return "", apperr.New(apperr.KindInvalidName, "name must not contain '..'")
	}
	if strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".") {
		return "", apperr.New(apperr.KindInvalidName, "name must not start or end with '.'")
	}
	if _, ok := reservedNames[strings.ToLower(name)]; ok {
		return "", apperr.New(apperr.KindInvalidName, "name %q is reserved", name)
	}
	return name, nil
}

// ChildPath joins a parent path and a child name. The root path "/"
// is special-cased so children of the root do not get a double slash.
func ChildPath(parentPath, name string) (string, error) {
	var p string
	if parentPath == "/" {
		p = "/" + name
	} else {
		p = parentPath + "/" + name
	}
	if utf8.RuneCountInString(p) > MaxPathLen {
		return "", apperr.New(apperr.KindPathTooLong, "path exceeds %d characters", MaxPathLen)
	}
	return p, nil
}

// DepthOf counts the non-empty segments of a materialized path.
// The root "/" has depth 0.
func DepthOf(path string) int {
	depth := 0
	for _, seg := range strings.Split(path, "/") {
		if seg != "" {
			depth++
		}
	}
	return depth
}

// ParentPath strips the last segment. The parent of a first-level
// folder is "/".
func ParentPath(path string) string {
	idx := strings.LastIndex(path, "/")
	if idx <= 0 {
		return "/"
	}
	return path[:idx]
}

// IsSelfOrDescendant reports whether path equals ancestor or lies
// anywhere under it. Used as the cycle test for folder moves.
func IsSelfOrDescendant(path, ancestor string) bool {
	if path == ancestor {
		return true
	}
	if ancestor == "/" {
		return strings.HasPrefix(path, "/")
	}
	return strings.HasPrefix(path, ancestor+"/")
}

// ReplacePrefix rewrites the leading oldPrefix of path with newPrefix.
// path must actually start with oldPrefix; callers guarantee that via
// the prefix queries that located it.
func ReplacePrefix(path, oldPrefix, newPrefix string) string {
	return newPrefix + strings.TrimPrefix(path, oldPrefix)
}

// Ancestry decomposes a materialized path into the chain of paths
// from the root down to the path itself, e.g. "/a/b" yields
// ["/", "/a", "/a/b"].
func Ancestry(path string) []string {
	chain := []string{"/"}
	if path == "/" {
		return chain
	}
	segs := strings.Split(strings.TrimPrefix(path, "/"), "/")
	cur := ""
	for _, seg := range segs {
		cur = cur + "/" + seg
		chain = append(chain, cur)
	}
	return chain
}
