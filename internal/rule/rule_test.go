package rule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStringGrammar(t *testing.T) {
	r, err := Parse("tvl.change7d > 0.05 AND etf.flow.usd > 100e6", 1)
	require.NoError(t, err)
	require.Len(t, r.Expressions, 2)
	require.Len(t, r.Operators, 1)
	assert.Equal(t, LogicAnd, r.Operators[0])

	assert.Equal(t, "tvl.change7d", r.Expressions[0].Field)
	assert.Equal(t, OpGT, r.Expressions[0].Op)
	assert.Equal(t, 0.05, r.Expressions[0].Value)

	// Scientific notation parses identically to direct float parsing.
	assert.Equal(t, 100000000.0, r.Expressions[1].Value)
	assert.Equal(t, TypeNumber, r.Expressions[1].DataType)
}

func TestParseOperatorLongestMatch(t *testing.T) {
	r, err := Parse("price >= 100", 1)
	require.NoError(t, err)
	assert.Equal(t, OpGTE, r.Expressions[0].Op)

	r, err = Parse("price > 100", 1)
	require.NoError(t, err)
	assert.Equal(t, OpGT, r.Expressions[0].Op)
}

func TestParseSymbolicLogicTokens(t *testing.T) {
	r, err := Parse("a > 1 && b > 2 || c > 3", 1)
	require.NoError(t, err)
	require.Len(t, r.Expressions, 3)
	assert.Equal(t, []LogicOp{LogicAnd, LogicOr}, r.Operators)
}

func TestParseStringLiteral(t *testing.T) {
	r, err := Parse(`regime == "bull"`, 1)
	require.NoError(t, err)
	assert.Equal(t, TypeString, r.Expressions[0].DataType)
	assert.Equal(t, "bull", r.Expressions[0].Value)
}

func TestParseStructured(t *testing.T) {
	r, err := Parse(`{"and":[{"field":"tvl.change7d","op":">","value":0.05},{"field":"etf.flow.usd","op":">","value":1.2e8}]}`, 2)
	require.NoError(t, err)
	require.Len(t, r.Expressions, 2)
	require.Len(t, r.Operators, 1)
	assert.Equal(t, LogicAnd, r.Operators[0])
	assert.Equal(t, 2.0, r.Weight)

	r, err = Parse(`{"field":"score","op":">=","value":0.5}`, 1)
	require.NoError(t, err)
	require.Len(t, r.Expressions, 1)
	assert.Empty(t, r.Operators)
}

func TestParseErrors(t *testing.T) {
	_, err := Parse("this is not a condition", 1)
	require.Error(t, err)
	var perr ParseError
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, perr.Error(), "this is not a condition")

	_, err = Parse("", 1)
	assert.Error(t, err)

	_, err = Parse("{not json", 1)
	assert.Error(t, err)

	_, err = Parse(`{"and":[]}`, 1)
	assert.Error(t, err)
}

func TestEvalScenario(t *testing.T) {
	r, err := Parse("tvl.change7d > 0.05 AND etf.flow.usd > 100e6", 1)
	require.NoError(t, err)

	data := map[string]interface{}{
		"tvl": map[string]interface{}{"change7d": 0.06},
		"etf": map[string]interface{}{
			"flow": map[string]interface{}{"usd": 1.2e8},
		},
	}
	assert.True(t, r.Eval(data))

	data["tvl"].(map[string]interface{})["change7d"] = 0.01
	assert.False(t, r.Eval(data))
}

func TestEvalFlattenedKeys(t *testing.T) {
	r, err := Parse("etf.flow.usd > 100e6", 1)
	require.NoError(t, err)

	flat := Flatten(map[string]interface{}{
		"etf": map[string]interface{}{
			"flow": map[string]interface{}{"usd": 1.5e8},
		},
	})
	assert.Equal(t, 1.5e8, flat["etf.flow.usd"])
	assert.True(t, r.Eval(flat))
}

func TestEvalSingleExpressionEquivalence(t *testing.T) {
	r, err := Parse("score > 0.5", 1)
	require.NoError(t, err)
	require.Len(t, r.Expressions, 1)

	for _, data := range []map[string]interface{}{
		{"score": 0.7},
		{"score": 0.3},
		{},
	} {
		assert.Equal(t, r.Expressions[0].Eval(data), r.Eval(data))
	}
}

func TestEvalMissingPathIsFalse(t *testing.T) {
	r, err := Parse("a.b.c > 0", 1)
	require.NoError(t, err)
	assert.False(t, r.Eval(map[string]interface{}{}))
	assert.False(t, r.Eval(map[string]interface{}{"a": map[string]interface{}{"b": nil}}))
	assert.False(t, r.Eval(map[string]interface{}{"a": "not a map"}))
	assert.False(t, r.Eval(nil))
}

func TestEvalNumericCoercion(t *testing.T) {
	r, err := Parse("volume > 100", 1)
	require.NoError(t, err)
	assert.True(t, r.Eval(map[string]interface{}{"volume": "150"}))
	assert.False(t, r.Eval(map[string]interface{}{"volume": "abc"}))
}

func TestEvalLooseEquality(t *testing.T) {
	r, err := Parse("level == 3", 1)
	require.NoError(t, err)
	assert.True(t, r.Eval(map[string]interface{}{"level": 3.0}))
	assert.True(t, r.Eval(map[string]interface{}{"level": "3"}))

	r, err = Parse(`regime != "bear"`, 1)
	require.NoError(t, err)
	assert.True(t, r.Eval(map[string]interface{}{"regime": "bull"}))
	assert.False(t, r.Eval(map[string]interface{}{"regime": "bear"}))
}

func TestEvalLeftToRightFold(t *testing.T) {
	// a OR b AND c folds as (a OR b) AND c: no precedence.
	r, err := Parse("a > 0 OR b > 0 AND c > 0", 1)
	require.NoError(t, err)

	data := map[string]interface{}{"a": 1.0, "b": -1.0, "c": -1.0}
	assert.False(t, r.Eval(data))

	data["c"] = 1.0
	assert.True(t, r.Eval(data))
}

func TestEvalEmptyRuleIsFalse(t *testing.T) {
	r := &Rule{}
	assert.False(t, r.Eval(map[string]interface{}{"x": 1.0}))
}

func TestScore(t *testing.T) {
	r1, err := Parse("a > 0", 2)
	require.NoError(t, err)
	r2, err := Parse("b > 0", 1)
	require.NoError(t, err)
	r3, err := Parse("c > 0", 1)
	require.NoError(t, err)

	data := map[string]interface{}{"a": 1.0, "b": 1.0, "c": -1.0}
	assert.InDelta(t, 0.75, Score([]*Rule{r1, r2, r3}, data), 1e-12)

	assert.Equal(t, 0.0, Score(nil, data))
	assert.Equal(t, 0.0, Score([]*Rule{}, data))
}
