package rag

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{name: "identical", a: []float32{1, 2, 3}, b: []float32{1, 2, 3}, want: 1},
		{name: "orthogonal", a: []float32{1, 0}, b: []float32{0, 1}, want: 0},
		{name: "opposite", a: []float32{1, 0}, b: []float32{-1, 0}, want: -1},
		{name: "length mismatch", a: []float32{1, 2}, b: []float32{1, 2, 3}, want: 0},
		{name: "zero vector", a: []float32{0, 0}, b: []float32{1, 1}, want: 0},
		{name: "empty", a: nil, b: nil, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CosineSimilarity(tt.a, tt.b), 1e-9)
		})
	}
}

func TestTokenize(t *testing.T) {
	got := Tokenize("What is the SETBACK for a 2-story garage? x")
	assert.Equal(t, []string{"setback", "story", "garage"}, got)
}

func TestTextOverlap(t *testing.T) {
	text := "Detached garages require a five foot side setback and a ten foot rear setback."

	assert.InDelta(t, 1.0, TextOverlap("garage setback?", "garage setback rules"), 1e-9)
	assert.InDelta(t, 0.5, TextOverlap("rear fence", text), 1e-9)
	assert.Zero(t, TextOverlap("plumbing vent", text))
	assert.Zero(t, TextOverlap("what is the", text), "stop words alone never match")
}

func TestChunk(t *testing.T) {
	text := "one two three four five six seven"

	assert.Equal(t, []string{"one two three", "three four five", "five six seven"}, Chunk(text, 3, 1))
	assert.Equal(t, []string{"one two three four", "five six seven"}, Chunk(text, 4, 0))
	assert.Equal(t, []string{text}, Chunk(text, 50, 10))
	assert.Nil(t, Chunk("   \n\t ", 10, 2))

	// overlap not below size is ignored
	assert.Equal(t, []string{"one two", "three four", "five six", "seven"}, Chunk(text, 2, 2))
}
