package gofilter

// Operator defines a comparison operator applied to a column.
type Operator string

const (
	OperatorEQ        Operator = "="
	OperatorNE        Operator = "<>"
	OperatorLT        Operator = "<"
	OperatorLTE       Operator = "<="
	OperatorGT        Operator = ">"
	OperatorGTE       Operator = ">="
	OperatorLike      Operator = "LIKE"
	OperatorIn        Operator = "IN"
	OperatorNotIn     Operator = "NOT IN"
	OperatorBetween   Operator = "BETWEEN"
	OperatorIsNull    Operator = "IS NULL"
	OperatorIsNotNull Operator = "IS NOT NULL"
)

func (o Operator) Valid() bool {
	switch o {
	case OperatorEQ, OperatorNE, OperatorLT, OperatorLTE, OperatorGT, OperatorGTE,
		OperatorLike, OperatorIn, OperatorNotIn, OperatorBetween,
		OperatorIsNull, OperatorIsNotNull:
		return true
	default:
		return false
	}
}

// Unary reports whether the operator takes no value (IS NULL, IS NOT NULL).
func (o Operator) Unary() bool {
	return o == OperatorIsNull || o == OperatorIsNotNull
}

// Negate returns the operator with the opposite meaning. Range operators
// without a single-operator complement (LIKE, BETWEEN) are returned as is
// with ok=false.
func (o Operator) Negate() (Operator, bool) {
	switch o {
	case OperatorEQ:
		return OperatorNE, true
	case OperatorNE:
		return OperatorEQ, true
	case OperatorLT:
		return OperatorGTE, true
	case OperatorGTE:
		return OperatorLT, true
	case OperatorGT:
		return OperatorLTE, true
	case OperatorLTE:
		return OperatorGT, true
	case OperatorIn:
		return OperatorNotIn, true
	case OperatorNotIn:
		return OperatorIn, true
	case OperatorIsNull:
		return OperatorIsNotNull, true
	case OperatorIsNotNull:
		return OperatorIsNull, true
	default:
		return o, false
	}
}
