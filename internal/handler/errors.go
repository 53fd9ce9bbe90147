package handler

import "fmt"

func errUnknownTool(name string) error {
	return fmt.Errorf("handler: no tool registered for %q", name)
}
