package report

import (
	"fmt"

	"github.com/queryex/api/pkg/domain/shared"
)

// Domain errors for reports.
var (
	ErrReportNotFound     = fmt.Errorf("%w: report not found", shared.ErrNotFound)
	ErrParameterNotFound  = fmt.Errorf("%w: parameter not found", shared.ErrNotFound)
	ErrUnknownParameter   = fmt.Errorf("%w: unknown parameter", shared.ErrValidation)
	ErrDuplicateParameter = fmt.Errorf("%w: parameter supplied more than once", shared.ErrValidation)
	ErrNotMultiValue      = fmt.Errorf("%w: parameter does not accept multiple values", shared.ErrValidation)
	ErrNoDropdown         = fmt.Errorf("%w: parameter has no value source", shared.ErrValidation)
)
