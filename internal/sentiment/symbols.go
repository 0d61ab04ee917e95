package sentiment

import (
	"regexp"
	"sort"
	"strings"

	"trademate/internal/domain"
)

var symbolTokenRx = regexp.MustCompile(`\$?[A-Za-z]{2,10}`)

var symbolAlias = map[string][]string{
	"BTC":  {"btc", "bitcoin", "xbt"},
	"ETH":  {"eth", "ethereum"},
	"SOL":  {"sol", "solana"},
	"XRP":  {"xrp", "ripple", "xrpl"},
	"ADA":  {"ada", "cardano"},
	"DOGE": {"doge", "dogecoin"},
	"DOT":  {"dot", "polkadot"},
	"AVAX": {"avax", "avalanche"},
	"LINK": {"link", "chainlink"},
}

var subredditSymbolHint = map[string]string{
	"bitcoin":        "BTC",
	"ethereum":       "ETH",
	"cardano":        "ADA",
	"ripple":         "XRP",
	"xrpl":           "XRP",
	"solana":         "SOL",
	"cryptocurrency": "",
}

// ExtractSymbols returns the tracked symbols an item talks about. The
// market-wide fear/greed index applies to every symbol.
func ExtractSymbols(item Item) []string {
	if strings.EqualFold(strings.TrimSpace(item.SourceID), "fear_greed") {
		return append([]string(nil), domain.SupportedSymbols...)
	}

	text := strings.ToLower(item.Title + " " + item.Excerpt)
	matched := make(map[string]struct{}, 8)

	for _, raw := range symbolTokenRx.FindAllString(text, -1) {
		token := strings.TrimPrefix(strings.ToUpper(raw), "$")
		if domain.IsSupportedSymbol(token) {
			matched[token] = struct{}{}
		}
	}

	for symbol, aliases := range symbolAlias {
		for _, alias := range aliases {
			if strings.Contains(text, alias) {
				matched[symbol] = struct{}{}
				break
			}
		}
	}

	if item.Metadata != nil {
		if subreddit, ok := item.Metadata["subreddit"].(string); ok {
			if symbol, found := subredditSymbolHint[strings.ToLower(strings.TrimSpace(subreddit))]; found && symbol != "" {
				matched[symbol] = struct{}{}
			}
		}
	}

	if len(matched) == 0 {
		return nil
	}
	out := make([]string, 0, len(matched))
	for symbol := range matched {
		out = append(out, symbol)
	}
	sort.Strings(out)
	return out
}
