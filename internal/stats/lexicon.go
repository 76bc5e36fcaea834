package stats

// Fixed sentiment lexicons for Turkish e-commerce reviews. Classification is
// a coarse substring heuristic, not a trained model: sarcasm and negation
// will misclassify, which is an accepted limitation of the contract.
//
// "memnun değil" also matches the positive "memnun", so a review saying only
// that scores one hit on each side and lands on neutral.
var (
	positiveWords = []string{
		"güzel", "iyi", "beğendim", "memnun", "kaliteli", "tavsiye", "harika", "mükemmel",
	}
	negativeWords = []string{
		"kötü", "berbat", "memnun değil", "kırık", "bozuk", "iade",
	}
)
