package rule

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// condRe matches a single <field><op><value> condition. Two-character
// operators come first so >= is not read as > followed by =.
var condRe = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*(?:\.[A-Za-z0-9_]+)*)\s*(>=|<=|==|!=|>|<)\s*(.+)$`)

// logicRe finds whitespace-bounded logical tokens. && and || are synonyms
// for AND and OR.
var logicRe = regexp.MustCompile(`\s+(AND|OR|&&|\|\|)\s+`)

// Parse compiles a rule expression into an evaluable Rule. The input is
// classified upfront: text starting with '{' is parsed as the structured
// JSON form, anything else goes through the string grammar.
func Parse(input string, weight float64) (*Rule, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return nil, ParseError{Expr: input, Message: "empty expression"}
	}
	if weight <= 0 {
		weight = 1
	}
	if strings.HasPrefix(trimmed, "{") {
		return parseStructured(trimmed, weight)
	}
	return parseString(trimmed, weight)
}

// structuredNode is the JSON rule shape: either a {and:[...]} / {or:[...]}
// wrapper or a bare condition object.
type structuredNode struct {
	And   []structuredCond `json:"and"`
	Or    []structuredCond `json:"or"`
	Field string           `json:"field"`
	Op    string           `json:"op"`
	Value interface{}      `json:"value"`
}

type structuredCond struct {
	Field string      `json:"field"`
	Op    string      `json:"op"`
	Value interface{} `json:"value"`
}

func parseStructured(input string, weight float64) (*Rule, error) {
	var node structuredNode
	if err := json.Unmarshal([]byte(input), &node); err != nil {
		return nil, ParseError{Expr: input, Message: "invalid JSON rule: " + err.Error()}
	}

	var conds []structuredCond
	var logic LogicOp
	switch {
	case len(node.And) > 0:
		conds = node.And
		logic = LogicAnd
	case len(node.Or) > 0:
		conds = node.Or
		logic = LogicOr
	case node.Field != "":
		conds = []structuredCond{{Field: node.Field, Op: node.Op, Value: node.Value}}
		logic = LogicAnd
	default:
		return nil, ParseError{Expr: input, Message: "structured rule has no conditions"}
	}

	rule := &Rule{Weight: weight, Original: input}
	for _, c := range conds {
		expr, err := buildExpression(c.Field, c.Op, c.Value, input)
		if err != nil {
			return nil, err
		}
		rule.Expressions = append(rule.Expressions, expr)
	}
	for i := 0; i < len(rule.Expressions)-1; i++ {
		rule.Operators = append(rule.Operators, logic)
	}
	return rule, nil
}

func parseString(input string, weight float64) (*Rule, error) {
	rule := &Rule{Weight: weight, Original: input}

	locs := logicRe.FindAllStringSubmatchIndex(input, -1)
	prev := 0
	var parts []string
	for _, loc := range locs {
		parts = append(parts, input[prev:loc[0]])
		token := input[loc[2]:loc[3]]
		rule.Operators = append(rule.Operators, normalizeLogic(token))
		prev = loc[1]
	}
	parts = append(parts, input[prev:])

	for _, part := range parts {
		expr, err := parseCondition(part)
		if err != nil {
			return nil, err
		}
		rule.Expressions = append(rule.Expressions, expr)
	}
	return rule, nil
}

func normalizeLogic(token string) LogicOp {
	switch token {
	case "OR", "||":
		return LogicOr
	default:
		return LogicAnd
	}
}

func parseCondition(text string) (Expression, error) {
	trimmed := strings.TrimSpace(text)
	m := condRe.FindStringSubmatch(trimmed)
	if m == nil {
		return Expression{}, ParseError{Expr: trimmed, Message: "condition does not match <field><op><value>"}
	}
	return buildExpression(m[1], m[2], strings.TrimSpace(m[3]), trimmed)
}

// buildExpression validates the operator and types the value. Numeric
// literals, including exponent notation such as 100e6, parse to float64;
// everything else is a string (surrounding quotes stripped).
func buildExpression(field, op string, value interface{}, source string) (Expression, error) {
	if field == "" {
		return Expression{}, ParseError{Expr: source, Message: "condition is missing a field"}
	}
	cop := CompareOp(op)
	switch cop {
	case OpGT, OpGTE, OpLT, OpLTE, OpEQ, OpNEQ:
	default:
		return Expression{}, ParseError{Expr: source, Message: "unsupported operator " + op}
	}

	expr := Expression{Field: field, Op: cop}
	switch v := value.(type) {
	case float64:
		expr.Value = v
		expr.DataType = TypeNumber
	case int:
		expr.Value = float64(v)
		expr.DataType = TypeNumber
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return Expression{}, ParseError{Expr: source, Message: "invalid numeric value " + v.String()}
		}
		expr.Value = f
		expr.DataType = TypeNumber
	case string:
		lit := strings.TrimSpace(v)
		if f, err := strconv.ParseFloat(lit, 64); err == nil {
			expr.Value = f
			expr.DataType = TypeNumber
			break
		}
		if len(lit) >= 2 {
			if (lit[0] == '"' && lit[len(lit)-1] == '"') || (lit[0] == '\'' && lit[len(lit)-1] == '\'') {
				lit = lit[1 : len(lit)-1]
			}
		}
		expr.Value = lit
		expr.DataType = TypeString
	case nil:
		return Expression{}, ParseError{Expr: source, Message: "condition is missing a value"}
	default:
		return Expression{}, ParseError{Expr: source, Message: "unsupported value type"}
	}
	return expr, nil
}
