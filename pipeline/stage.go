// Package pipeline implements the five ETL stages and the runner and
// scheduler that drive them.
package pipeline

import (
	"fmt"
	"io"

	"github.com/hashicorp/go-multierror"
)

// Stage names, in execution order.
const (
	StageInitSchema = "init_schema"
	StageLoad       = "load"
	StageExtract    = "extract"
	StageTransform  = "transform"
	StagePublish    = "publish"
)

// Stages lists every stage in the order the runner executes them.
var Stages = []string{StageInitSchema, StageLoad, StageExtract, StageTransform, StagePublish}

// closeInto closes c and folds any failure into *err.
func closeInto(err *error, c io.Closer, what string) {
	if cerr := c.Close(); cerr != nil {
		*err = multierror.Append(*err, fmt.Errorf("close %s: %w", what, cerr))
	}
}
