package report

import "strings"

// GuessResult grades a visitor's guess against a test result.
type GuessResult struct {
	// Confident is true when the test has a clear winner.
	Confident bool

	// Graded is false when no guess was made (NOGUESS mode).
	Graded bool

	// Correct: for a confident test, the guess named the winner; for an
	// inconclusive test, the guess was "no difference".
	Correct bool

	// Leaned: the guess named the winner, whether or not the result is
	// statistically meaningful.
	Leaned bool

	// Winner and Loser are the human-readable variation names.
	Winner string
	Loser  string
}

// Grade evaluates a guess for the test whose meta row lives in dir.
// Pass an empty guess to resolve winner/loser names without grading.
func Grade(m *Meta, dir, guess string) GuessResult {
	res := GuessResult{
		Confident: m.Confident(),
		Winner:    LookupValue(dir, m.Winner),
		Loser:     LookupValue(dir, m.Loser),
	}

	if guess == "" {
		return res
	}

	res.Graded = true
	named := strings.EqualFold(guess, m.Winner)
	res.Leaned = named
	if res.Confident {
		res.Correct = named
	} else {
		res.Correct = guess == GuessNoDifference
	}
	return res
}
