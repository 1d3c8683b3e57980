package chunk

// TokenCounter estimates the analysis-input size of a piece of text in
// language-model tokens.
type TokenCounter interface {
	Count(text string) int
}

// EstimateCounter approximates tokens as one per four characters, the
// usual heuristic for code-heavy English text. Good enough for budget
// enforcement; the budget itself leaves headroom.
type EstimateCounter struct{}

// Count implements TokenCounter.
func (EstimateCounter) Count(text string) int {
	return (len(text) + 3) / 4
}
