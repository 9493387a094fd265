package pluginmanager

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// DefaultInstalledCondition decides whether a listed plugin counts as
// installed. Plugins installed without a restart are active right away;
// plugins marked for removal are not installed.
const DefaultInstalledCondition = "plugin.active && !plugin.deleted"

// condition is a compiled installed-condition expression.
type condition struct {
	source  string
	program *vm.Program
}

// compileCondition compiles a boolean expression over the plugin fields,
// addressed with their JSON names (plugin.shortName, plugin.version,
// plugin.active, plugin.enabled, ...).
func compileCondition(source string) (*condition, error) {
	if source == "" {
		source = DefaultInstalledCondition
	}

	program, err := expr.Compile(source, expr.Env(conditionEnv{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("failed to compile installed condition: %w", err)
	}

	return &condition{source: source, program: program}, nil
}

// eval runs the condition against p.
func (c *condition) eval(p Plugin) (bool, error) {
	output, err := expr.Run(c.program, conditionEnv{Plugin: p})
	if err != nil {
		return false, fmt.Errorf("failed to evaluate installed condition %q: %w", c.source, err)
	}

	result, ok := output.(bool)
	if !ok {
		return false, fmt.Errorf("installed condition did not evaluate to boolean: %v", output)
	}

	return result, nil
}

// conditionEnv is the environment installed conditions run against.
type conditionEnv struct {
	Plugin Plugin `expr:"plugin"`
}
