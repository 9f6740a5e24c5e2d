package cli

import (
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/mrz1836/btclink/internal/wallet"
	linkerr "github.com/mrz1836/btclink/pkg/errors"
)

// maxSuggestDistance is the largest edit distance still offered as a suggestion.
const maxSuggestDistance = 2

// parseWallet parses a wallet name, suggesting the closest known one on a typo.
func parseWallet(name string) (wallet.Type, error) {
	t, err := wallet.ParseType(name)
	if err == nil {
		return t, nil
	}

	if s := closestWallet(name); s != "" {
		return "", linkerr.WithSuggestion(err, fmt.Sprintf("did you mean %q?", s))
	}
	return "", linkerr.WithSuggestion(err, "supported wallets: "+walletNames())
}

// closestWallet returns the known wallet nearest to name, or "".
func closestWallet(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))

	best, bestDist := "", maxSuggestDistance+1
	for _, t := range wallet.AllTypes() {
		if d := levenshtein.ComputeDistance(name, string(t)); d < bestDist {
			best, bestDist = string(t), d
		}
	}
	return best
}

func walletNames() string {
	names := make([]string, 0, len(wallet.AllTypes()))
	for _, t := range wallet.AllTypes() {
		names = append(names, string(t))
	}
	return strings.Join(names, ", ")
}

// walletCompletions feeds shell completion for wallet arguments.
func walletCompletions() []string {
	return strings.Split(walletNames(), ", ")
}
