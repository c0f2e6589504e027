package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/xhad/pagechat/internal/models"
	"github.com/xhad/pagechat/pkg/scraper"
)

const (
	ClearedMessage = "Scraped content cleared successfully"

	MaxHistoryLimit = 100
)

var endpoints = []string{
	"/scrape",
	"/chat",
	"/scrape/status",
	"/scrape/clear",
	"/scrape/history",
	"/ws",
}

// Pointer fields tell an absent field apart from an empty one. Only absent
// fields are rejected.
type scrapeBody struct {
	URL *string `json:"url"`
}

type chatBody struct {
	UserPrompt        *string `json:"user_prompt"`
	UseScrapedContent *bool   `json:"use_scraped_content"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

type rootResponse struct {
	Status    string   `json:"status"`
	Endpoints []string `json:"endpoints"`
}

type clearResponse struct {
	Status string `json:"status"`
}

type historyResponse struct {
	Enabled   bool                  `json:"enabled"`
	Documents []models.HistoryEntry `json:"documents"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("server: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}

func decodeBody(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, rootResponse{Status: "API is running", Endpoints: endpoints})
}

// scrape fetches url, replaces the slot and archives the document when
// history is enabled.
func (s *Server) scrape(ctx context.Context, url string) (models.ScrapeResponse, error) {
	text, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		return models.ScrapeResponse{}, err
	}

	doc := s.slot.Store(url, text)
	if s.history != nil {
		if err := s.history.Record(ctx, doc); err != nil {
			s.logger.Warn("history record failed", zap.String("url", url), zap.Error(err))
		}
	}

	return models.ScrapeResponse{
		Content:       doc.Preview,
		URL:           doc.URL,
		ContentLength: doc.Length,
	}, nil
}

func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	var body scrapeBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid request body: "+err.Error())
		return
	}
	if body.URL == nil {
		writeError(w, http.StatusUnprocessableEntity, "url is required")
		return
	}
	req := models.ScrapeRequest{URL: *body.URL}

	resp, err := s.scrape(r.Context(), req.URL)
	if err != nil {
		s.logger.Error("scrape failed",
			zap.String("request_id", RequestID(r.Context())),
			zap.String("url", req.URL),
			zap.Error(err),
		)
		detail := err.Error()
		if !scraper.IsRetrievalError(err) {
			detail = "Error scraping website: " + detail
		}
		writeError(w, http.StatusInternalServerError, detail)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.slot.Status())
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	s.slot.Clear()
	writeJSON(w, http.StatusOK, clearResponse{Status: ClearedMessage})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var body chatBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid request body: "+err.Error())
		return
	}
	if body.UserPrompt == nil {
		writeError(w, http.StatusUnprocessableEntity, "user_prompt is required")
		return
	}

	req := models.ChatRequest{UserPrompt: *body.UserPrompt, UseScrapedContent: body.UseScrapedContent}
	writeJSON(w, http.StatusOK, s.forwarder.Ask(r.Context(), req))
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeJSON(w, http.StatusOK, historyResponse{Enabled: false, Documents: []models.HistoryEntry{}})
		return
	}

	limit := s.config.HistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > MaxHistoryLimit {
			writeError(w, http.StatusUnprocessableEntity,
				"limit must be an integer between 1 and "+strconv.Itoa(MaxHistoryLimit))
			return
		}
		limit = n
	}

	docs, err := s.history.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error("history query failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Error reading scrape history: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, historyResponse{Enabled: true, Documents: docs})
}
