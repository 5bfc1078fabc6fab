package shortid

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// drawSequence 按固定顺序产出候选 ID
func drawSequence(ids ...string) func() (string, error) {
	i := 0
	return func() (string, error) {
		id := ids[i]
		i++
		return id, nil
	}
}

func existsIn(occupied ...string) ExistsFunc {
	return func(id string) (bool, error) {
		for _, o := range occupied {
			if o == id {
				return true, nil
			}
		}
		return false, nil
	}
}

func TestGenerateFirstAttempt(t *testing.T) {
	g := NewWithDraw(drawSequence("Z9Z9Z9"))

	id, err := g.Generate(existsIn())
	require.NoError(t, err)
	assert.Equal(t, "Z9Z9Z9", id)
}

func TestGenerateRetriesOnCollision(t *testing.T) {
	// 前两次抽取命中已占用的 ID，第三次成功
	g := NewWithDraw(drawSequence("A1B2C3", "D4E5F6", "Z9Z9Z9"))

	id, err := g.Generate(existsIn("A1B2C3", "D4E5F6"))
	require.NoError(t, err)
	assert.Equal(t, "Z9Z9Z9", id)
}

func TestGenerateExhausted(t *testing.T) {
	g := NewWithDraw(drawSequence("A1B2C3", "A1B2C3", "A1B2C3"))

	_, err := g.Generate(existsIn("A1B2C3"))
	assert.ErrorIs(t, err, ErrExhausted)
}

func TestRandomIDShape(t *testing.T) {
	g := New()
	seen := make(map[string]bool)

	for i := 0; i < 100; i++ {
		id, err := g.Generate(existsIn())
		require.NoError(t, err)
		require.Len(t, id, Length)
		for _, r := range id {
			assert.True(t, strings.ContainsRune(Alphabet, r), "unexpected character %q in %s", r, id)
		}
		seen[id] = true
	}

	// 57^6 的空间里 100 次抽取撞车几乎不可能
	assert.Greater(t, len(seen), 95)
}

func TestIsValid(t *testing.T) {
	assert.True(t, IsValid("Z9Z9Z9"))
	assert.True(t, IsValid("abcdef"))
	assert.False(t, IsValid("abcde"))      // 长度不足
	assert.False(t, IsValid("abcdefg"))    // 超长
	assert.False(t, IsValid("abc0ef"))     // 0 不在字母表中
	assert.False(t, IsValid("abclef"))     // l 不在字母表中
	assert.False(t, IsValid("api/xx"))     // 路径形态
	assert.False(t, IsValid(""))
}

func TestAlphabetExcludesAmbiguousCharacters(t *testing.T) {
	require.Len(t, Alphabet, 57)
	for _, r := range "01IOl" {
		assert.False(t, strings.ContainsRune(Alphabet, r), "ambiguous character %q must be excluded", r)
	}
}
