package guardian

import "strings"

// suspicionKeywords are the lowercased substrings that mark a message as a
// probable extraction attempt against a guardian. Matching is plain
// containment on the lowercased text.
var suspicionKeywords = []string{
	"ignore",
	"previous",
	"instructions",
	"instruction",
	"system prompt",
	"initial prompt",
	"prompt",
	"secret",
	"password",
	"passphrase",
	"seed",
	"mnemonic",
	"recovery phrase",
	"wallet",
	"private key",
	"token",
	"flag",
	"reveal",
	"jailbreak",
	"bypass",
	"override",
	"disregard",
	"forget",
	"pretend",
	"roleplay",
	"act as",
	"developer mode",
	"debug mode",
	"sudo",
	"admin",
	"root access",
	"hidden",
	"confidential",
	"leak",
	"repeat after me",
	"what are your rules",
}

// Suspicious reports whether a message trips the extraction heuristic.
func Suspicious(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range suspicionKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
