package handlers

import (
	"net/http"
)

// CategoryNames lists the configured report categories
type CategoryNames interface {
	Names() []string
}

// Category handles category requests
type Category struct {
	Set CategoryNames
}

// CategoriesHandler returns the configured report categories
func (c Category) CategoriesHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"categories": c.Set.Names()})
}
