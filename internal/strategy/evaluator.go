package strategy

import (
	"errors"
	"fmt"

	"crypto-signal-bot/internal/binance"
	"crypto-signal-bot/internal/logging"
)

// Evaluator runs the rule registry against a candle series. Rules are
// isolated from each other: a rule that errors or panics is skipped and
// its siblings still run.
type Evaluator struct {
	rules  []Rule
	logger *logging.Logger
}

// NewEvaluator creates an evaluator over the given rules. Pass
// DefaultRules() for the standard registry.
func NewEvaluator(rules []Rule, logger *logging.Logger) *Evaluator {
	if logger == nil {
		logger = logging.WithComponent("strategy")
	}
	return &Evaluator{rules: rules, logger: logger}
}

// Evaluate returns every rule that fires for the series, in registry order.
// The series is never mutated.
func (e *Evaluator) Evaluate(klines []binance.Kline) []Match {
	matches := make([]Match, 0, 2)

	for _, rule := range e.rules {
		fired, err := e.safeCheck(rule, klines)
		if err != nil {
			if !errors.Is(err, ErrInsufficientData) {
				e.logger.Warn("rule evaluation failed",
					"strategy", rule.Name,
					"error", err)
			}
			continue
		}
		if fired {
			matches = append(matches, Match{
				Strategy: rule.Name,
				Side:     rule.Side,
				Base:     rule.Base,
			})
		}
	}

	return matches
}

// safeCheck runs one rule condition, converting panics into errors so a
// misbehaving rule cannot take down the run.
func (e *Evaluator) safeCheck(rule Rule, klines []binance.Kline) (fired bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			fired = false
			err = fmt.Errorf("rule %q panicked: %v", rule.Name, r)
		}
	}()
	return rule.Condition(klines)
}
