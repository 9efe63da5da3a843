package attributes

import (
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/mrzor/ci-telemetry/internal/config"
	"github.com/mrzor/ci-telemetry/internal/proctrace"
	"go.opentelemetry.io/otel/attribute"
)

// Evaluator handles compilation and evaluation of custom attribute expressions.
type Evaluator struct {
	customAttrs   []config.CustomAttribute
	compiledExprs []*vm.Program
	logger        *slog.Logger
}

// typeEnv describes the evaluation environment for type checking.
func typeEnv() map[string]interface{} {
	return commandEnv(&proctrace.CompletedCommand{Args: []string{}})
}

func commandEnv(cmd *proctrace.CompletedCommand) map[string]interface{} {
	return map[string]interface{}{
		"name":      cmd.Name,
		"fileName":  cmd.FileName,
		"args":      cmd.Args,
		"cmdline":   strings.Join(cmd.Args, " "),
		"pid":       cmd.PID,
		"ppid":      cmd.PPID,
		"uid":       cmd.UID,
		"exitCode":  cmd.ExitCode,
		"startTime": cmd.StartTime,
		"duration":  cmd.Duration,
	}
}

// NewEvaluator creates a new attribute evaluator.
// It pre-compiles all custom attribute expressions for efficiency.
func NewEvaluator(customAttrs []config.CustomAttribute, logger *slog.Logger) (*Evaluator, error) {
	if logger == nil {
		logger = slog.Default()
	}

	exprEnv := typeEnv()
	compiledExprs := make([]*vm.Program, len(customAttrs))
	for i, attr := range customAttrs {
		program, err := expr.Compile(attr.Expression, expr.Env(exprEnv))
		if err != nil {
			return nil, fmt.Errorf("failed to compile expression for attribute %q: %w", attr.Name, err)
		}
		compiledExprs[i] = program
	}

	return &Evaluator{
		customAttrs:   customAttrs,
		compiledExprs: compiledExprs,
		logger:        logger,
	}, nil
}

// Evaluate runs every custom attribute expression against cmd.
// An expression that fails at runtime is logged and skipped.
func (e *Evaluator) Evaluate(cmd *proctrace.CompletedCommand) []attribute.KeyValue {
	if len(e.customAttrs) == 0 || cmd == nil {
		return nil
	}

	env := commandEnv(cmd)

	var attrs []attribute.KeyValue
	for i, customAttr := range e.customAttrs {
		output, err := expr.Run(e.compiledExprs[i], env)
		if err != nil {
			e.logger.Warn("failed to evaluate custom attribute",
				"attribute", customAttr.Name, "pid", cmd.PID, "error", err)
			continue
		}

		outputValue := reflect.ValueOf(output)
		if outputValue.Kind() != reflect.Map {
			attrs = append(attrs, attribute.String(customAttr.Name, fmt.Sprint(output)))
			continue
		}

		// Expand map into separate attributes with dot notation
		for _, key := range outputValue.MapKeys() {
			attrName := customAttr.Name + "." + sanitizeAttributeName(fmt.Sprint(key.Interface()))
			attrs = append(attrs, attribute.String(attrName, fmt.Sprint(outputValue.MapIndex(key).Interface())))
		}
	}

	return attrs
}

// sanitizeAttributeName replaces non-alphanumeric characters with underscores.
func sanitizeAttributeName(name string) string {
	result := make([]byte, len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' {
			result[i] = c
		} else {
			result[i] = '_'
		}
	}
	return string(result)
}
