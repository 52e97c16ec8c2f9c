package phrase

import (
	"strings"
	"testing"
)

func TestNewGeneratorRejectsEmptyVocabularies(t *testing.T) {
	t.Parallel()

	if _, err := NewGenerator(nil, []string{"four"}); err == nil {
		t.Error("expected error for empty word list")
	}
	if _, err := NewGenerator([]string{"ocean"}, nil); err == nil {
		t.Error("expected error for empty number list")
	}
}

func TestGenerateDrawsFromVocabularies(t *testing.T) {
	t.Parallel()

	words := []string{"ocean", "mountain", "sunset"}
	numbers := []string{"three", "seven"}
	g, err := NewGenerator(words, numbers)
	if err != nil {
		t.Fatalf("NewGenerator failed: %v", err)
	}

	inWords := make(map[string]bool, len(words))
	for _, w := range words {
		inWords[w] = true
	}
	inNumbers := make(map[string]bool, len(numbers))
	for _, n := range numbers {
		inNumbers[n] = true
	}

	for i := 0; i < 100; i++ {
		got := g.Generate()
		parts := strings.Split(got, " ")
		if len(parts) != 2 {
			t.Fatalf("Generate() = %q, want two space-separated tokens", got)
		}
		if !inWords[parts[0]] {
			t.Fatalf("Generate() first token %q not in word vocabulary", parts[0])
		}
		if !inNumbers[parts[1]] {
			t.Fatalf("Generate() second token %q not in number vocabulary", parts[1])
		}
	}
}

func TestGenerateDeterministicWithSingletonVocab(t *testing.T) {
	t.Parallel()

	g, err := NewGenerator([]string{"ocean"}, []string{"four"})
	if err != nil {
		t.Fatalf("NewGenerator failed: %v", err)
	}
	for i := 0; i < 5; i++ {
		if got := g.Generate(); got != "ocean four" {
			t.Fatalf("Generate() = %q, want %q", got, "ocean four")
		}
	}
}
