package api

import (
	"net/http"

	"trade-journal/internal/analytics"
)

func (s *Server) handleStatsSummary(w http.ResponseWriter, r *http.Request) {
	trades, err := s.allTrades(r)
	if err != nil {
		writeError(w, r, err, "Server error while fetching statistics")
		return
	}
	ok(w, "", analytics.Summarize(trades))
}

func (s *Server) handleAnalyticsInsights(w http.ResponseWriter, r *http.Request) {
	trades, err := s.allTrades(r)
	if err != nil {
		writeError(w, r, err, "Server error while fetching analytics insights")
		return
	}
	ok(w, "Performance insights generated successfully", s.performance.Analyze(trades))
}

func (s *Server) handlePsychologyPatterns(w http.ResponseWriter, r *http.Request) {
	trades, err := s.allTrades(r)
	if err != nil {
		writeError(w, r, err, "Server error while fetching psychology patterns")
		return
	}
	ok(w, "Psychology patterns analyzed successfully", s.psychology.Analyze(trades))
}
