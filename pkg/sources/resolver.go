package sources

import (
	"regexp"
	"sort"
	"strings"
)

// UnknownSource is returned when neither a rule nor a domain can be derived.
const UnknownSource = "(알수없음)"

var (
	// Strips, in order, a scheme and the host markers that commonly precede
	// a publisher's canonical domain in search results.
	addressPrefixRe = regexp.MustCompile(`^(https?:/?/?)?(/?/?www\.)?(/?/?news\.)?(/?/?view\.)?(/?/?post\.)?(/?/?photo\.)?(/?/?photos\.)?(/?/?blog\.)?`)
	domainRe        = regexp.MustCompile(`^[^:/\n?=]+`)
)

// Rule maps a normalized URL prefix to a publisher label.
type Rule struct {
	Prefix string `yaml:"prefix" json:"prefix"`
	Label  string `yaml:"label" json:"label"`
}

// Resolver maps article URLs to publisher labels using a sorted prefix table.
// It is immutable after construction and safe for concurrent use.
type Resolver struct {
	rules []Rule
}

// NewResolver builds a resolver over a copy of rules. Prefixes are lowercased,
// blank entries dropped, duplicates resolved in favour of the last occurrence,
// and the table sorted ascending.
func NewResolver(rules []Rule) *Resolver {
	byPrefix := make(map[string]Rule, len(rules))
	for _, r := range rules {
		p := strings.ToLower(strings.TrimSpace(r.Prefix))
		l := strings.TrimSpace(r.Label)
		if p == "" || l == "" {
			continue
		}
		byPrefix[p] = Rule{Prefix: p, Label: l}
	}

	table := make([]Rule, 0, len(byPrefix))
	for _, r := range byPrefix {
		table = append(table, r)
	}
	sort.Slice(table, func(i, j int) bool { return table[i].Prefix < table[j].Prefix })

	return &Resolver{rules: table}
}

// Default returns a resolver over the built-in publisher table.
func Default() *Resolver {
	return NewResolver(BuiltinRules())
}

// Len reports the number of rules in the table.
func (r *Resolver) Len() int { return len(r.rules) }

// Rules returns a copy of the sorted table.
func (r *Resolver) Rules() []Rule {
	out := make([]Rule, len(r.rules))
	copy(out, r.rules)
	return out
}

// Resolve returns the publisher label for link. It never fails: without a
// matching rule it falls back to the bare domain, then to UnknownSource.
func (r *Resolver) Resolve(link string) string {
	address := Normalize(link)

	if idx := r.search(address); idx >= 0 {
		return r.rules[idx].Label
	}
	if domain := domainRe.FindString(address); domain != "" {
		return domain
	}
	return UnknownSource
}

// Normalize lowercases link and strips the scheme and leading host markers.
func Normalize(link string) string {
	address := strings.ToLower(strings.TrimSpace(link))
	return addressPrefixRe.ReplaceAllString(address, "")
}

// search binary-searches for any rule whose prefix equals address truncated to
// the rule's length, then refines the hit to the most specific nested rule.
func (r *Resolver) search(address string) int {
	left, right := 0, len(r.rules)-1

	for left <= right {
		mid := left + (right-left)/2
		prefix := r.rules[mid].Prefix
		stripped := truncate(address, len(prefix))

		switch {
		case stripped == prefix:
			return r.refine(mid, address, stripped)
		case stripped < prefix:
			right = mid - 1
		default:
			left = mid + 1
		}
	}
	return r.recover(left, address)
}

// recover handles searches that landed inside a nested block and stepped past
// the parent rule. A parent sorts before address, so walk back from the
// insertion point while rules still share address's first byte.
func (r *Resolver) recover(at int, address string) int {
	if address == "" {
		return -1
	}
	for i := min(at, len(r.rules)) - 1; i >= 0; i-- {
		prefix := r.rules[i].Prefix
		if prefix[0] != address[0] {
			break
		}
		if strings.HasPrefix(address, prefix) {
			return r.refine(i, address, prefix)
		}
	}
	return -1
}

// refine walks the block of rules that follow idx and contain the matched
// prefix, then returns the rightmost one whose prefix occurs in address.
func (r *Resolver) refine(idx int, address, stripped string) int {
	end := idx
	for end+1 < len(r.rules) && strings.Contains(r.rules[end+1].Prefix, stripped) {
		end++
	}
	if end == idx {
		return idx
	}

	for i := end; i >= idx; i-- {
		if strings.Contains(address, r.rules[i].Prefix) {
			return i
		}
	}
	return idx
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
