// Package utils provides small, generic helper functions used across
// different layers of the application. These utilities are independent
// of domain or business logic.
package utils

import "strconv"

// AtoiDefault converts a string to an int using strconv.Atoi.
// If the string is empty or cannot be parsed as an integer,
// it returns the provided default value instead.
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// PageParams normalizes raw page/per_page query values into a usable window:
// page defaults to 1 and is clamped to >= 1, perPage defaults to defPerPage
// and is clamped to [1, maxPerPage].
func PageParams(rawPage, rawPerPage string, defPerPage, maxPerPage int) (page, perPage int) {
	page = AtoiDefault(rawPage, 1)
	if page < 1 {
		page = 1
	}
	perPage = AtoiDefault(rawPerPage, defPerPage)
	if perPage < 1 {
		perPage = defPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	return page, perPage
}
