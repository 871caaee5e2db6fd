package reply

import "regexp"

type rephraseRule struct {
	find *regexp.Regexp
	repl []string
}

// Small substitution table that keeps canned lines from reading identical
// across sessions. Each rule applies with 40% probability.
var rephraseRules = []rephraseRule{
	{regexp.MustCompile(`(?i)\byou\?`), []string{"you doing?", "your side?", "you there?"}},
	{regexp.MustCompile(`(?i)\byeah\b`), []string{"ya", "yep", "yes"}},
	{regexp.MustCompile(`(?i)\bhmm\b`), []string{"hmm", "ya", "ok"}},
}

// Rephrase applies light random substitutions to a reply so repeated
// intents don't produce byte-identical text.
func Rephrase(text string, rng *lockedRand) string {
	out := text
	for _, r := range rephraseRules {
		if r.find.MatchString(out) && rng.Float64() < 0.4 {
			out = r.find.ReplaceAllString(out, r.repl[rng.Intn(len(r.repl))])
		}
	}
	return out
}
