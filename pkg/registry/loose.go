package registry

import (
	"context"

	"github.com/devicelab-dev/cyrunner/pkg/core"
)

// eachElement applies fn to every element of loc, sidestepping strict mode.
// A locator matching zero or one element is passed through unchanged so the
// driver reports the failure.
func eachElement(ctx context.Context, loc core.Locator, fn func(core.Locator) error) error {
	count, err := loc.Count(ctx)
	if err != nil {
		return driverErr("count", err)
	}
	if count <= 1 {
		return fn(loc)
	}
	for i := 0; i < count; i++ {
		if err := fn(loc.Nth(i)); err != nil {
			return err
		}
	}
	return nil
}
