package catalog

// Kind discriminates tree entries. Only files are ever fetched.
type Kind string

const (
	KindFile  Kind = "file"
	KindOther Kind = "other"
)

// KindFromGitType maps a git tree entry type ("blob", "tree", "commit") to a Kind.
func KindFromGitType(t string) Kind {
	if t == "blob" {
		return KindFile
	}
	return KindOther
}

// Entry is one path in the repository tree listing.
type Entry struct {
	Path string `json:"path"`
	Kind Kind   `json:"kind"`
}

// Listing is the result of a single catalog request.
type Listing struct {
	Ref     string
	SHA     string
	Entries []Entry

	// Truncated is set when the remote API did not return the full tree.
	Truncated bool
}

// Files returns the number of file entries in the listing.
func (l *Listing) Files() int {
	if l == nil {
		return 0
	}
	n := 0
	for _, e := range l.Entries {
		if e.Kind == KindFile {
			n++
		}
	}
	return n
}
