package repoloader

import (
	"regexp"
	"strings"

	"github.com/xhad/sourcebook/pkg/apperr"
)

var (
	repoURLPattern = regexp.MustCompile(`^https?://(www\.)?github\.com/[\w.-]+/[\w.-]+(\.git)?$`)
	repoPathParts  = regexp.MustCompile(`github\.com/([\w.-]+)/([\w.-]+)`)
)

// Ref is a validated reference to a remote repository.
type Ref struct {
	URL   string
	Owner string
	Repo  string
}

// Label is the "owner/repo" name used for sources and citations.
func (r Ref) Label() string {
	return r.Owner + "/" + r.Repo
}

// ParseRef validates a repository URL of the form
// https://github.com/{owner}/{repo}[.git].
func ParseRef(raw string) (Ref, error) {
	raw = strings.TrimSpace(raw)
	if !repoURLPattern.MatchString(raw) {
		return Ref{}, apperr.Validation("repoloader", "Invalid GitHub URL format")
	}

	m := repoPathParts.FindStringSubmatch(raw)
	return Ref{
		URL:   raw,
		Owner: m[1],
		Repo:  strings.TrimSuffix(m[2], ".git"),
	}, nil
}

// IsValidURL reports whether raw is an acceptable repository reference.
func IsValidURL(raw string) bool {
	_, err := ParseRef(raw)
	return err == nil
}
