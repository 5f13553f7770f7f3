package manifest

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/altuslabsxyz/checklist-migrator/internal/domain/document"
	"github.com/altuslabsxyz/checklist-migrator/internal/domain/migration"
)

// compileCheck compiles a boolean expr-lang expression into a self-check.
// The document is available as "doc"; its top-level keys are also bound
// directly, so `version == "1.1.0"` and `doc.version == "1.1.0"` are equal.
func compileCheck(expression string) (migration.SelfCheckFunc, error) {
	program, err := expr.Compile(expression,
		expr.Env(map[string]any{}),
		expr.AllowUndefinedVariables(),
		expr.AsBool(),
	)
	if err != nil {
		return nil, err
	}
	return func(doc *document.Document) bool {
		ok, err := evalCheck(program, doc)
		return err == nil && ok
	}, nil
}

func evalCheck(program *vm.Program, doc *document.Document) (bool, error) {
	root, err := doc.ToMap()
	if err != nil {
		return false, err
	}
	env := make(map[string]any, len(root)+1)
	for k, v := range root {
		env[k] = v
	}
	env["doc"] = root

	out, err := expr.Run(program, env)
	if err != nil {
		return false, err
	}
	ok, isBool := out.(bool)
	if !isBool {
		return false, fmt.Errorf("check returned %T, want bool", out)
	}
	return ok, nil
}
