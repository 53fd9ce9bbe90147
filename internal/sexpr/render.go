package sexpr

import (
	"fmt"
	"strconv"
	"strings"
)

// Render renders an evaluated Value back to its textual form, used whenever
// a top-level evaluation result must become a TaskResult's Content string.
func Render(v Value) string {
	switch x := v.(type) {
	case nil:
		return "nil"
	case bool:
		if x {
			return "true"
		}
		return "false"
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case string:
		return x
	case Symbol:
		return string(x)
	case []Value:
		parts := make([]string, len(x))
		for i, item := range x {
			parts[i] = Render(item)
		}
		return "(" + strings.Join(parts, " ") + ")"
	case *Closure:
		return "#<closure>"
	case *TemplateRef:
		return fmt.Sprintf("#<template:%s>", x.Name)
	case *ToolRef:
		return fmt.Sprintf("#<tool:%s>", x.Name)
	default:
		return fmt.Sprintf("%v", x)
	}
}
