package wiki

import (
	"fmt"
	"strings"
)

// BaseURL is the prefix of every CodeWiki documentation page.
const BaseURL = "https://codewiki.google/github.com/"

// RepoRef names a GitHub repository.
type RepoRef struct {
	Owner string
	Repo  string
}

// ParseRepoRef parses "owner/repo". Exactly one slash with non-empty parts
// on either side is accepted.
func ParseRepoRef(s string) (RepoRef, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return RepoRef{}, fmt.Errorf("%w: %q", ErrInvalidRepoRef, s)
	}
	return RepoRef{Owner: parts[0], Repo: parts[1]}, nil
}

func (r RepoRef) String() string {
	return r.Owner + "/" + r.Repo
}

// URL returns the CodeWiki page for the repository.
func (r RepoRef) URL() string {
	return DocsURL(r.Owner, r.Repo)
}

// DocsURL returns the CodeWiki page for owner/repo. Neither part is
// validated or escaped.
func DocsURL(owner, repo string) string {
	return BaseURL + owner + "/" + repo
}
