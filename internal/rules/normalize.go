package rules

import "strings"

// NormalizePath canonicalizes a vault-relative path so that equivalent
// spellings compare equal. Backslashes become slashes, runs of slashes
// collapse to one, and leading and trailing slashes are stripped. The root
// is the empty string. Case and unicode content are left untouched.
func NormalizePath(p string) string {
	if p == "" {
		return ""
	}

	p = strings.ReplaceAll(p, `\`, "/")

	var b strings.Builder
	b.Grow(len(p))
	prevSlash := false
	for i := 0; i < len(p); i++ {
		c := p[i]
		if c == '/' {
			if prevSlash {
				continue
			}
			prevSlash = true
		} else {
			prevSlash = false
		}
		b.WriteByte(c)
	}

	return strings.Trim(b.String(), "/")
}

// ParentFolder returns the normalized folder containing p, or "" when p sits
// at the vault root.
func ParentFolder(p string) string {
	p = NormalizePath(p)
	i := strings.LastIndexByte(p, '/')
	if i < 0 {
		return ""
	}
	return p[:i]
}
