package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/voxplay/voxplay/internal/catalog"
)

// suggestion is one autocomplete hit shaped for display.
type suggestion struct {
	Key  string `json:"key"`
	Type string `json:"type"`
	Name string `json:"name"`
}

// autocomplete returns interactive search suggestions across the whole
// catalog. The query goes through the same title normalization as the
// indexed documents.
// GET /api/v1/search/autocomplete?query=...&type=...
func (s *Server) autocomplete(c echo.Context) error {
	queryText := strings.TrimSpace(c.QueryParam("query"))
	if queryText == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query is required")
	}

	gen := s.store.Current()
	if gen.Empty() {
		return c.JSON(http.StatusOK, []suggestion{})
	}

	results, err := gen.Indexes.Autocomplete(catalog.Normalize(strings.ToLower(queryText)))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	wantType := c.QueryParam("type")
	suggestions := make([]suggestion, 0, len(results))
	for _, res := range results {
		item, ok := gen.ItemByKey(res.Key)
		if !ok {
			// On-deck and recent subset entries are not part of the main
			// item list.
			continue
		}
		if wantType != "" && string(item.Type) != wantType {
			continue
		}
		suggestions = append(suggestions, suggestion{
			Key:  item.Key,
			Type: string(item.Type),
			Name: displayName(item),
		})
	}

	return c.JSON(http.StatusOK, suggestions)
}

// displayName shapes an item for autocomplete display: episodes show their
// verbose title, split movie titles rejoin with a dash.
func displayName(item *catalog.Item) string {
	if item.Type == catalog.TypeEpisode {
		return item.VerboseSearchTitle
	}
	if item.SecondaryTitle != "" {
		return item.PrimaryTitle + " - " + item.SecondaryTitle
	}
	return item.Title
}
