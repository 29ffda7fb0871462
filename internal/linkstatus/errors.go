package linkstatus

import "fmt"

// InvalidParamsError reports a request parameter whose value does not match
// any known entity.
type InvalidParamsError struct {
	Param string
	Value string
}

func (e *InvalidParamsError) Error() string {
	return fmt.Sprintf("invalid params: %s %q not found", e.Param, e.Value)
}
