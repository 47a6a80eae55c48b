package thread

import (
	"errors"
	"testing"
)

func TestCallRunsInsideRun(t *testing.T) {
	value := 0
	var err error
	Run(func() {
		Call(func() { value = 1 })
		err = CallErr(func() error { return errors.New("from main") })
	})
	if value != 1 {
		t.Errorf("wrong value %v", value)
	}
	if err == nil || err.Error() != "from main" {
		t.Errorf("CallErr = %v", err)
	}
}
