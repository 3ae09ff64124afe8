package rule

// CompareOp is a comparison operator in a rule condition.
type CompareOp string

const (
	OpGT  CompareOp = ">"
	OpGTE CompareOp = ">="
	OpLT  CompareOp = "<"
	OpLTE CompareOp = "<="
	OpEQ  CompareOp = "=="
	OpNEQ CompareOp = "!="
)

// LogicOp joins two conditions.
type LogicOp string

const (
	LogicAnd LogicOp = "AND"
	LogicOr  LogicOp = "OR"
)

// DataType declares how a condition's value is compared.
type DataType string

const (
	TypeNumber DataType = "number"
	TypeString DataType = "string"
)

// Expression is a single parsed condition. Immutable once parsed.
type Expression struct {
	Field    string      `json:"field"` // dotted path into the data record
	Op       CompareOp   `json:"op"`
	Value    interface{} `json:"value"` // float64 or string
	DataType DataType    `json:"data_type"`
}

// Rule is a parsed rule: an ordered condition sequence joined by logical
// operators, folded strictly left to right. There is no operator precedence
// and no parenthesization in the rule grammar.
type Rule struct {
	Expressions []Expression `json:"expressions"`
	Operators   []LogicOp    `json:"operators"` // len == max(len(Expressions)-1, 0)
	Weight      float64      `json:"weight"`
	Original    string       `json:"original"`
}

// ParseError reports a malformed rule expression, naming the offending text.
type ParseError struct {
	Expr    string
	Message string
}

func (e ParseError) Error() string {
	return "rule parse error: " + e.Message + ": " + e.Expr
}
