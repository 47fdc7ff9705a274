// Package guard vets administrative commands before they reach the cluster.
package guard

import (
	"strings"
)

// blockedKeywords are kubectl verbs that mutate or disrupt cluster state.
var blockedKeywords = []string{
	"delete",
	"drain",
	"cordon",
	"uncordon",
	"label",
	"annotate",
	"taint",
	"apply",
	"patch",
	"replace",
	"edit",
	"set",
}

// Intent is a command the caller wants to run: a base command plus extra arguments.
// Targets carries object names and namespaces the tool fills in behind a fixed verb;
// they are passed to kubectl but never matched against the blocklist.
type Intent struct {
	Command string
	Args    []string
	Targets []string
}

// String returns the full command line as attempted, without case folding.
func (i Intent) String() string {
	return strings.Join(i.Tokens(), " ")
}

// Tokens splits the intent into the argument vector passed to the executor.
func (i Intent) Tokens() []string {
	tokens := append(strings.Fields(i.Command), i.Args...)
	return append(tokens, i.Targets...)
}

// matchTokens is the lowercased command and arguments the filter checks.
func (i Intent) matchTokens() []string {
	return strings.Fields(strings.ToLower(i.Command + " " + strings.Join(i.Args, " ")))
}

// Decision is the outcome of evaluating an Intent.
type Decision struct {
	Allowed bool
	Keyword string // the blocked keyword that matched, when denied
}

// Filter matches intents against the fixed blocklist.
type Filter struct {
	blocked map[string]struct{}
}

// NewFilter returns a filter with the fixed blocklist.
func NewFilter() *Filter {
	blocked := make(map[string]struct{}, len(blockedKeywords))
	for _, k := range blockedKeywords {
		blocked[k] = struct{}{}
	}
	return &Filter{blocked: blocked}
}

// Evaluate denies the intent when any whitespace-delimited token equals a blocked keyword.
// Keywords embedded in a longer token (a resource named "patch-job") do not match.
func (f *Filter) Evaluate(intent Intent) Decision {
	for _, token := range intent.matchTokens() {
		if _, ok := f.blocked[token]; ok {
			return Decision{Allowed: false, Keyword: token}
		}
	}
	return Decision{Allowed: true}
}

// BlockedKeywords returns a copy of the blocklist.
func BlockedKeywords() []string {
	out := make([]string, len(blockedKeywords))
	copy(out, blockedKeywords)
	return out
}
