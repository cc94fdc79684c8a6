package api

import (
	"net/http"
	"time"

	"github.com/noxuslabs/noxus/internal/common"
	"github.com/noxuslabs/noxus/internal/insight"
)

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	items, refreshedAt, lastError := s.insights.Insights()
	writeJSON(w, http.StatusOK, insightsResponse{
		Insights:    toInsightViews(items),
		RefreshedAt: formatRefreshedAt(refreshedAt),
		LastError:   lastError,
	})
}

func (s *Server) handleInsightsRefresh(w http.ResponseWriter, r *http.Request) {
	logger := common.Logger()
	logger.Info("api: insight refresh requested")
	items, err := s.insights.Refresh(r.Context())
	if err != nil {
		writeError(w, statusForPipelineError(err), err)
		return
	}
	_, refreshedAt, _ := s.insights.Insights()
	writeJSON(w, http.StatusOK, insightsResponse{
		Insights:    toInsightViews(items),
		RefreshedAt: formatRefreshedAt(refreshedAt),
	})
}

func toInsightViews(items []insight.Insight) []insightView {
	views := make([]insightView, 0, len(items))
	for _, item := range items {
		style := insight.StyleFor(item.Type)
		views = append(views, insightView{
			Insight: item,
			Icon:    style.Icon,
			Color:   style.Color,
			BgColor: style.Background,
		})
	}
	return views
}

func formatRefreshedAt(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
