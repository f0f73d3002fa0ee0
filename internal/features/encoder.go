package features

import (
	"sort"
)

// UnknownCode is assigned to categorical values not seen at fit time.
// Missing values encode as 0 instead, like any other absent column.
const UnknownCode = -1

// CategoryEncoder maps the labels of one categorical column to integer codes.
// Codes follow the sorted label order and never change after Fit.
type CategoryEncoder struct {
	Column string
	Labels []string
}

// FitCategoryEncoder builds an encoder from observed values. Empty values are
// treated as missing and get no code.
func FitCategoryEncoder(column string, values []string) *CategoryEncoder {
	seen := make(map[string]struct{}, 8)
	labels := make([]string, 0, 8)
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		labels = append(labels, v)
	}
	sort.Strings(labels)
	return &CategoryEncoder{Column: column, Labels: labels}
}

// Encode returns the code for label and whether it was known.
func (e *CategoryEncoder) Encode(label string) (int, bool) {
	i := sort.SearchStrings(e.Labels, label)
	if i < len(e.Labels) && e.Labels[i] == label {
		return i, true
	}
	return UnknownCode, false
}

// Decode returns the label for code.
func (e *CategoryEncoder) Decode(code int) (string, bool) {
	if code < 0 || code >= len(e.Labels) {
		return "", false
	}
	return e.Labels[code], true
}

// Len returns the number of known labels.
func (e *CategoryEncoder) Len() int {
	return len(e.Labels)
}
