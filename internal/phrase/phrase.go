// Package phrase generates random two-token challenge phrases from
// configured vocabularies.
package phrase

import (
	"fmt"
	"math/rand"
)

// Generator draws a random phrase combining one word and one number word,
// e.g. "ocean four". Vocabularies are injected so tests can supply small
// deterministic lists.
type Generator struct {
	words   []string
	numbers []string
}

// NewGenerator creates a Generator from the given vocabularies.
func NewGenerator(words, numbers []string) (*Generator, error) {
	if len(words) == 0 {
		return nil, fmt.Errorf("word vocabulary is empty")
	}
	if len(numbers) == 0 {
		return nil, fmt.Errorf("number vocabulary is empty")
	}
	return &Generator{words: words, numbers: numbers}, nil
}

// Generate returns a new challenge phrase. The raw output is not normalized
// here; the engine normalizes once at storage time.
func (g *Generator) Generate() string {
	word := g.words[rand.Intn(len(g.words))]
	number := g.numbers[rand.Intn(len(g.numbers))]
	return word + " " + number
}
