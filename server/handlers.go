package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/poiesic/findorigin/ai"
	"github.com/poiesic/findorigin/analysis"
	"github.com/poiesic/findorigin/core"
	"github.com/poiesic/findorigin/metrics"
	"github.com/poiesic/findorigin/pipeline"
	"github.com/poiesic/findorigin/telegram"
)

const (
	maxBodyBytes = 1 << 20

	msgTextRequired = "Text is required"
	msgNoSources    = "Источники не найдены"
	msgNoProviders  = "Поисковый API не настроен. Настройте один из API (Google, Yandex, Bing, SerpAPI) для получения результатов поиска."
)

// testAnalyzeTypes are the preferred source types of /api/test-analyze.
var testAnalyzeTypes = []core.SourceType{
	core.SourceTypeOfficial,
	core.SourceTypeNews,
	core.SourceTypeResearch,
	core.SourceTypeBlog,
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type textRequest struct {
	Text string `json:"text"`
}

type healthResponse struct {
	Status           string   `json:"status"`
	Timestamp        string   `json:"timestamp"`
	HasTelegramToken bool     `json:"hasTelegramToken"`
	Providers        []string `json:"providers"`
	Reasoning        bool     `json:"reasoning"`
	Message          string   `json:"message"`
}

type sourceJSON struct {
	Title          string          `json:"title"`
	URL            string          `json:"url"`
	Snippet        string          `json:"snippet"`
	RelevanceScore int             `json:"relevanceScore"`
	Confidence     core.Confidence `json:"confidence"`
	Explanation    string          `json:"explanation"`
	SourceType     core.SourceType `json:"sourceType"`
}

type analyzeResponse struct {
	Results []sourceJSON `json:"results"`
	Count   int          `json:"count"`
	Message string       `json:"message,omitempty"`
}

type testAnalyzeResponse struct {
	OriginalText  string               `json:"originalText"`
	CleanedText   string               `json:"cleanedText"`
	Analysis      *core.ExtractedData  `json:"analysis"`
	SearchResults []*core.SearchResult `json:"searchResults"`
	Outcome       pipeline.Outcome     `json:"outcome"`
	Note          *string              `json:"note"`
}

type setWebhookRequest struct {
	URL         string `json:"url"`
	SecretToken string `json:"secretToken"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := healthResponse{
		Status:           "ok",
		Timestamp:        s.now().UTC().Format(time.RFC3339),
		HasTelegramToken: s.bot != nil,
		Providers:        s.providers,
		Reasoning:        s.reasoning,
		Message:          "Bot is configured correctly",
	}
	if resp.Providers == nil {
		resp.Providers = []string{}
	}
	if s.bot == nil {
		resp.Message = "TELEGRAM_BOT_TOKEN is not set in environment variables"
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTelegram(w http.ResponseWriter, r *http.Request) {
	if s.bot == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "Telegram bot is not configured"})
		return
	}
	if s.secret != "" {
		got := r.Header.Get(SecretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(s.secret)) != 1 {
			s.countUpdate(metrics.UpdateRejected)
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
			return
		}
	}

	var update telegram.Update
	if err := decodeBody(w, r, &update); err != nil {
		s.countUpdate(metrics.UpdateRejected)
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid update"})
		return
	}

	if err := s.processUpdate(r.Context(), &update); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "busy, retry later"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// processUpdate handles one update. Work that outlives the request is
// handed to the pipeline. Only a run that could not be scheduled is reported,
// after its claim is released so Telegram's redelivery is processed.
func (s *Server) processUpdate(ctx context.Context, update *telegram.Update) error {
	msg, ok := telegram.ParseUpdate(update)
	if !ok {
		s.countUpdate(metrics.UpdateIgnored)
		return nil
	}
	logger := s.logger.With("update", update.UpdateID, "chat", msg.ChatID)
	key := fmt.Sprintf("update:%d", update.UpdateID)

	claimed := false
	if s.ledger != nil {
		var err error
		claimed, err = s.ledger.Claim(ctx, key)
		if err != nil {
			logger.Warn("replay guard unavailable", "err", err)
		} else if !claimed {
			logger.Debug("duplicate update")
			s.countUpdate(metrics.UpdateDuplicate)
			return nil
		}
	}
	s.countUpdate(metrics.UpdateAccepted)

	var reply string
	switch {
	case msg.Command() == "start" || msg.Command() == "help":
		reply = pipeline.MessageHelp
	case msg.IsLinkOnly():
		reply = pipeline.MessageForward
	}
	if reply != "" {
		if err := s.bot.Notify(ctx, msg.SessionID(), reply); err != nil {
			logger.Error("failed to send reply", "err", err)
		}
		return nil
	}

	runID, err := s.ranker.Submit(ctx, msg.SessionID(), msg.Text)
	if err != nil {
		logger.Error("failed to start run", "err", err)
		if claimed {
			if relErr := s.ledger.Release(ctx, key); relErr != nil {
				logger.Warn("failed to release update claim", "err", relErr)
			}
		}
		return err
	}
	logger.Info("run submitted", "run", runID)
	return nil
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if err := decodeBody(w, r, &req); err != nil || strings.TrimSpace(req.Text) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: msgTextRequired})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.analyzeTimeout)
	defer cancel()

	report, err := s.ranker.Rank(ctx, req.Text)
	if err != nil {
		s.writeRankError(w, err)
		return
	}

	resp := analyzeResponse{Results: formatSources(report.Comparisons)}
	resp.Count = len(resp.Results)
	switch report.Outcome {
	case pipeline.OutcomeNoSources, pipeline.OutcomeNoProviders:
		resp.Message = msgNoSources
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTestAnalyze(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if err := decodeBody(w, r, &req); err != nil || strings.TrimSpace(req.Text) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: msgTextRequired})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.analyzeTimeout)
	defer cancel()

	report, err := s.ranker.Rank(ctx, req.Text, testAnalyzeTypes...)
	if err != nil {
		s.writeRankError(w, err)
		return
	}

	resp := testAnalyzeResponse{
		OriginalText:  req.Text,
		CleanedText:   analysis.CleanText(req.Text),
		Analysis:      report.Analysis,
		SearchResults: report.Candidates[:min(ai.DefaultTopN, len(report.Candidates))],
		Outcome:       report.Outcome,
	}
	if resp.SearchResults == nil {
		resp.SearchResults = []*core.SearchResult{}
	}
	var note string
	switch report.Outcome {
	case pipeline.OutcomeNoProviders:
		note = msgNoProviders
	case pipeline.OutcomeNoSources:
		note = msgNoSources
	}
	if note != "" {
		resp.Note = &note
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSetWebhook(w http.ResponseWriter, r *http.Request) {
	if s.bot == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "Telegram bot is not configured"})
		return
	}
	var req setWebhookRequest
	if err := decodeBody(w, r, &req); err != nil || strings.TrimSpace(req.URL) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "URL is required"})
		return
	}
	if err := core.ValidateURL(req.URL); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "URL is invalid", Message: err.Error()})
		return
	}

	secret := req.SecretToken
	if secret == "" {
		secret = s.secret
	}
	if err := s.bot.SetWebhook(r.Context(), req.URL, secret); err != nil {
		s.logger.Error("failed to set webhook", "url", req.URL, "err", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to set webhook", Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "url": req.URL})
}

func (s *Server) writeRankError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, pipeline.ErrEmptyText):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: msgTextRequired})
	case errors.Is(err, context.DeadlineExceeded):
		writeJSON(w, http.StatusGatewayTimeout, errorResponse{Error: "analysis timed out"})
	default:
		s.logger.Error("ranking failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal server error", Message: err.Error()})
	}
}

func formatSources(comparisons []*core.ComparisonResult) []sourceJSON {
	out := make([]sourceJSON, 0, len(comparisons))
	for _, c := range comparisons {
		out = append(out, sourceJSON{
			Title:          c.Source.Title,
			URL:            c.Source.URL,
			Snippet:        c.Source.Snippet,
			RelevanceScore: c.RelevanceScore,
			Confidence:     c.Confidence,
			Explanation:    c.Explanation,
			SourceType:     c.Source.SourceType,
		})
	}
	return out
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
