package tokenizer

import "unicode/utf8"

// charactersPerToken is the rule-of-thumb ratio used by approximateCounter.
const charactersPerToken = 4

// approximateCounter charges one token per four runes, rounded up.
type approximateCounter struct{}

func (approximateCounter) Name() string {
	return ApproximateModel
}

func (approximateCounter) CountString(input string) (int, error) {
	runeCount := utf8.RuneCountInString(input)
	return (runeCount + charactersPerToken - 1) / charactersPerToken, nil
}

// EstimatorFunc adapts a plain estimation function supplied by a host to Counter.
type EstimatorFunc func(text string) int

// Name identifies the adapter.
func (EstimatorFunc) Name() string {
	return "estimator"
}

// CountString invokes the wrapped function.
func (estimator EstimatorFunc) CountString(input string) (int, error) {
	return estimator(input), nil
}

var (
	_ Counter = approximateCounter{}
	_ Counter = EstimatorFunc(nil)
)
