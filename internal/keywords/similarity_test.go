package keywords

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name string
		a, b []string
		want float64
	}{
		{"identical", []string{"travel", "music"}, []string{"music", "travel"}, 1.0},
		{"disjoint", []string{"travel"}, []string{"coding"}, 0.0},
		{"partial overlap", []string{"travel", "music"}, []string{"music", "coding"}, 1.0 / 3.0},
		{"left empty", nil, []string{"music"}, 0.0},
		{"right empty", []string{"music"}, []string{}, 0.0},
		{"both empty", nil, nil, 0.0},
		{"duplicates collapse", []string{"music", "music", "travel"}, []string{"music", "travel"}, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Score(tt.a, tt.b), 1e-9)
			assert.Equal(t, Score(tt.a, tt.b), Score(tt.b, tt.a), "score must be symmetric")
		})
	}
}

func TestScore_Range(t *testing.T) {
	sets := [][]string{
		{"a1", "b2", "c3"},
		{"b2"},
		{"c3", "d4", "e5", "f6"},
		{"x9"},
		{},
	}
	for _, a := range sets {
		for _, b := range sets {
			s := Score(a, b)
			assert.GreaterOrEqual(t, s, 0.0)
			assert.LessOrEqual(t, s, 1.0)
		}
	}
}

func TestScore_ChineseProfiles(t *testing.T) {
	a := Extract("想找人聊旅行和摄影", 10)
	b := Extract("摄影爱好者找人聊天", 10)

	assert.InDelta(t, 1.0/3.0, Score(a, b), 1e-9)
	assert.Equal(t, []string{"摄影"}, Intersect(a, b))
}

func TestFindBestMatch(t *testing.T) {
	query := []string{"travel", "music"}

	t.Run("picks the highest score", func(t *testing.T) {
		candidates := []Candidate{
			{UserID: "u1", Keywords: []string{"music", "coding"}},
			{UserID: "u2", Keywords: []string{"travel", "music"}},
		}
		best, score, ok := FindBestMatch(query, candidates, 0.2)

		assert.True(t, ok)
		assert.Equal(t, "u2", best.UserID)
		assert.InDelta(t, 1.0, score, 1e-9)
	})

	t.Run("ties keep the first candidate", func(t *testing.T) {
		candidates := []Candidate{
			{UserID: "first", Keywords: []string{"music", "coding"}},
			{UserID: "second", Keywords: []string{"music", "cooking"}},
		}
		best, _, ok := FindBestMatch(query, candidates, 0.2)

		assert.True(t, ok)
		assert.Equal(t, "first", best.UserID)
	})

	t.Run("respects the threshold", func(t *testing.T) {
		candidates := []Candidate{{UserID: "u1", Keywords: []string{"music", "coding"}}}

		_, _, ok := FindBestMatch(query, candidates, 0.5)
		assert.False(t, ok)

		best, score, ok := FindBestMatch(query, candidates, 1.0/3.0)
		assert.True(t, ok)
		assert.Equal(t, "u1", best.UserID)
		assert.InDelta(t, 1.0/3.0, score, 1e-9)
	})

	t.Run("skips candidates without keywords", func(t *testing.T) {
		candidates := []Candidate{{UserID: "empty"}, {UserID: "u1", Keywords: []string{"travel"}}}
		best, _, ok := FindBestMatch(query, candidates, -1)

		assert.True(t, ok)
		assert.Equal(t, "u1", best.UserID)
	})

	t.Run("no candidates", func(t *testing.T) {
		_, _, ok := FindBestMatch(query, nil, 0.2)
		assert.False(t, ok)
	})
}

func TestIntersect(t *testing.T) {
	got := Intersect([]string{"travel", "music", "travel", "coding"}, []string{"coding", "travel"})
	assert.Equal(t, []string{"travel", "coding"}, got)
	assert.Empty(t, Intersect([]string{"travel"}, nil))
}
