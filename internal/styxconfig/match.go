package styxconfig

import "github.com/bmatcuk/doublestar/v4"

// Matches reports whether relPath (workspace-relative, forward-slash
// separated) is selected by include/exclude double-star glob lists.
// An empty include list matches everything; exclude always wins.
func Matches(relPath string, include, exclude []string) bool {
	for _, pat := range exclude {
		if ok, _ := doublestar.Match(pat, relPath); ok {
			return false
		}
	}
	if len(include) == 0 {
		return true
	}
	for _, pat := range include {
		if ok, _ := doublestar.Match(pat, relPath); ok {
			return true
		}
	}
	return false
}

// MatchesImpl reports whether relPath belongs to impl within spec. The
// impl's own include/exclude lists select the path; the spec's include
// list (which selects rule-definition sources) is not consulted, but a
// path matched by the spec's exclude list is rejected.
func MatchesImpl(relPath string, spec Spec, impl Impl) bool {
	if !Matches(relPath, nil, spec.Exclude) {
		return false
	}
	return Matches(relPath, impl.Include, impl.Exclude)
}
