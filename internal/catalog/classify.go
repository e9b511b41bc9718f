package catalog

import (
	"fmt"
	"strings"
)

// Rule assigns entries whose path starts with Prefix to the bucket Name.
type Rule struct {
	Bucket string `yaml:"name" json:"name"`
	Prefix string `yaml:"prefix" json:"prefix"`
}

func (r Rule) String() string {
	return fmt.Sprintf("%s=%s", r.Bucket, r.Prefix)
}

// Bucket is a named set of fully-resolved retrieval locators.
type Bucket struct {
	Name     string
	Locators []string
}

// Classify partitions entries into one bucket per rule, in rule order.
//
// An entry is kept only if it is a file and its path ends with ext. It joins the
// first rule whose prefix matches, so overlapping prefixes never place a path in
// two buckets. Entries matching no rule are dropped. Locators are base joined
// with the entry path.
func Classify(entries []Entry, rules []Rule, ext string, base string) []Bucket {
	buckets := make([]Bucket, len(rules))
	for i, r := range rules {
		buckets[i] = Bucket{Name: r.Bucket, Locators: []string{}}
	}

	for _, e := range entries {
		if e.Kind != KindFile || !strings.HasSuffix(e.Path, ext) {
			continue
		}
		for i, r := range rules {
			if !strings.HasPrefix(e.Path, r.Prefix) {
				continue
			}
			buckets[i].Locators = append(buckets[i].Locators, JoinLocator(base, e.Path))
			break
		}
	}
	return buckets
}

// JoinLocator joins a base URL and a repository-relative path with exactly one slash.
func JoinLocator(base, path string) string {
	if base == "" {
		return path
	}
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(path, "/")
}

// Lookup returns the bucket with the given name.
func Lookup(buckets []Bucket, name string) (Bucket, bool) {
	for _, b := range buckets {
		if b.Name == name {
			return b, true
		}
	}
	return Bucket{}, false
}

// Total returns the number of locators across all buckets.
func Total(buckets []Bucket) int {
	n := 0
	for _, b := range buckets {
		n += len(b.Locators)
	}
	return n
}
