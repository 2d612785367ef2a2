// Package catalog отдаёт справочники островов и категорий.
package catalog

import (
	"net/http"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/direct-tree/internal/http/response"
	"github.com/magabrotheeeer/direct-tree/internal/models"
)

// Islands godoc
// @Summary Острова
// @Tags Catalog
// @Produce json
// @Success 200 {array} string
// @Router /islands [get]
func Islands(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, response.OK(map[string]any{"islands": models.Islands}))
}

// Categories godoc
// @Summary Категории бизнеса
// @Tags Catalog
// @Produce json
// @Success 200 {array} string
// @Router /categories [get]
func Categories(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, response.OK(map[string]any{"categories": models.Categories}))
}
