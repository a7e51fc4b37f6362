package app

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/queryex/api/pkg/domain/report"
	"github.com/queryex/api/pkg/pagination"
)

// cellText renders a result value as text. Dates without a time of day
// render as dates.
func cellText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case time.Time:
		if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
			return t.Format("2006-01-02")
		}
		return t.Format(time.RFC3339)
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(t)
	}
}

// cellNumber converts a result value to float64. NULL counts as zero.
func cellNumber(v any) (float64, error) {
	switch t := v.(type) {
	case nil:
		return 0, nil
	case int64:
		return float64(t), nil
	case int32:
		return float64(t), nil
	case int:
		return float64(t), nil
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case bool:
		if t {
			return 1, nil
		}
		return 0, nil
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, nil
		}
		if !strings.Contains(s, ".") {
			s = strings.Replace(s, ",", ".", 1)
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("%q is not a number", t)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("%T is not a number", v)
	}
}

func sortDefinitions(defs []*report.Definition, opt *pagination.SortOption) {
	slices.SortStableFunc(defs, func(a, b *report.Definition) int {
		return pagination.Compare(opt, a, b, compareDefinitions)
	})
}

func compareDefinitions(field string, a, b *report.Definition) int {
	switch field {
	case "id":
		return a.ID() - b.ID()
	case "title":
		return strings.Compare(strings.ToLower(a.Title()), strings.ToLower(b.Title()))
	default:
		return strings.Compare(a.RawPath(), b.RawPath())
	}
}
