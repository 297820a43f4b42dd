package process

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// PayloadVar is the name under which the payload is visible to expression
// conditions.
const PayloadVar = "payload"

// exprEnv is the expression environment. Payload is declared as an
// interface so comparisons and field access are checked at run time.
type exprEnv struct {
	Payload any `expr:"payload"`
}

type exprCondition struct {
	source  string
	program *vm.Program
}

// Expr compiles a boolean expression over the payload, e.g. "payload > 0"
// or `payload.status == "approved"`. Map payloads expose their keys as
// fields.
func Expr(source string) (Condition, error) {
	program, err := expr.Compile(source,
		expr.Env(exprEnv{}),
		expr.AsBool(),
	)
	if err != nil {
		return nil, fmt.Errorf("compile condition %q: %w", source, err)
	}
	return &exprCondition{source: source, program: program}, nil
}

// MustExpr is like Expr but panics on error.
func MustExpr(source string) Condition {
	c, err := Expr(source)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *exprCondition) Evaluate(payload any) (bool, error) {
	out, err := expr.Run(c.program, exprEnv{Payload: payload})
	if err != nil {
		return false, fmt.Errorf("evaluate %q: %w", c.source, err)
	}
	ok, isBool := out.(bool)
	if !isBool {
		return false, fmt.Errorf("evaluate %q: result is %T, not bool", c.source, out)
	}
	return ok, nil
}

func (c *exprCondition) String() string { return c.source }
