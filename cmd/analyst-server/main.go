// cmd/analyst-server/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"wb-analyst/internal/analyst"
	"wb-analyst/internal/archive"
	awsclient "wb-analyst/internal/common/aws"
	"wb-analyst/internal/common/config"
	"wb-analyst/internal/common/database"
	apperrors "wb-analyst/internal/common/errors"
	"wb-analyst/internal/common/logger"
	"wb-analyst/internal/common/observability"
	"wb-analyst/internal/feedback"
	"wb-analyst/internal/memory"
	"wb-analyst/internal/models"
	"wb-analyst/internal/notify"
	"wb-analyst/internal/pipeline"
	"wb-analyst/internal/reasoning"
	"wb-analyst/internal/tools"
	"wb-analyst/pkg/chunk"

	// Pipeline stages
	ci "wb-analyst/internal/pipeline/classify-intent"
	dm "wb-analyst/internal/pipeline/diagnose-metrics"
	ge "wb-analyst/internal/pipeline/gather-evidence"
	pa "wb-analyst/internal/pipeline/prescribe-actions"
	sr "wb-analyst/internal/pipeline/synthesize-response"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	zapLog := logger.New("info", "console")

	zapLog.Info("Starting analyst server...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	// Re-init with the configured level and format
	zapLog = logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()

	// Wrap zap logger with our logger interface
	log := logger.NewZapAdapter(zapLog)

	obs := observability.New("analyst-server")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		// Test the connection with context
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis with retry (optional session mirror) ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		// Test the connection with context
		return redis.Ping(ctx)
	}, 5, 2*time.Second, zapLog, "Redis connection")

	var sessionMirror *goredis.Client
	if err != nil {
		zapLog.Warn("redis unavailable, sessions will not survive restarts", zap.Error(err))
		redis = nil
	} else {
		defer redis.Close()
		sessionMirror = redis.Client
		zapLog.Info("Redis connected successfully")
	}

	// --- Init Elasticsearch with retry (optional conversation archive) ---
	var esClient *database.ElasticsearchClient
	if cfg.Archive.Enabled {
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			// Test the connection
			return esClient.Ping(ctx)
		}, 5, 2*time.Second, zapLog, "Elasticsearch connection")

		if err != nil {
			zapLog.Warn("elasticsearch unavailable, conversation archive disabled", zap.Error(err))
			esClient = nil
		} else {
			zapLog.Info("Elasticsearch connected successfully")
		}
	}

	// --- Init Reasoning Gateway Client ---
	reasoner := reasoning.NewClient(
		&reasoning.Config{
			BaseURL:     cfg.Reasoning.BaseURL,
			APIKey:      cfg.Reasoning.APIKey,
			Model:       cfg.Reasoning.Model,
			Timeout:     config.GetDuration(cfg.Reasoning.Timeout),
			MaxTokens:   cfg.Reasoning.MaxTokens,
			Temperature: cfg.Reasoning.Temperature,
		},
		log,
	)

	// --- Init Analytics Tool Runner ---
	runner := tools.NewRunner(tools.LoadConfig(), pg.DB, log)

	// --- Assemble the pipeline ---
	// classify, describe and synthesize are mandatory; diagnose and
	// prescribe may be switched off, their routes then fall through to
	// synthesis.
	classify := ci.NewHandler(
		&ci.Config{
			Timeout: config.GetDuration(config.GetStageConfig(cfg, ci.StageName).Timeout),
		},
		reasoner, log,
	)

	describe := ge.NewHandler(
		&ge.Config{
			Timeout: config.GetDuration(config.GetStageConfig(cfg, ge.StageName).Timeout),
		},
		runner, log,
	)

	var diagnose pipeline.Stage
	if config.IsStageEnabled(cfg, dm.StageName) {
		diagnose = dm.NewHandler(
			&dm.Config{
				Timeout:    config.GetDuration(config.GetStageConfig(cfg, dm.StageName).Timeout),
				WindowDays: 7,
			},
			runner, log,
		)
	} else {
		zapLog.Info("stage disabled", zap.String("stage", dm.StageName))
	}

	var prescribe pipeline.Stage
	if config.IsStageEnabled(cfg, pa.StageName) {
		prescribe = pa.NewHandler(
			&pa.Config{
				Timeout: config.GetDuration(config.GetStageConfig(cfg, pa.StageName).Timeout),
			},
			runner, log,
		)
	} else {
		zapLog.Info("stage disabled", zap.String("stage", pa.StageName))
	}

	synthesize := sr.NewHandler(
		&sr.Config{
			Timeout: config.GetDuration(config.GetStageConfig(cfg, sr.StageName).Timeout),
		},
		reasoner, log,
	)

	router := pipeline.NewRouter(classify, describe, diagnose, prescribe, synthesize, log)

	// --- Conversation memory ---
	sessions := memory.NewMemoryStore(
		&memory.Config{
			SessionTTL:      config.GetDuration(cfg.Memory.SessionTTL),
			DigestExchanges: cfg.Memory.DigestExchanges,
			DigestMaxChars:  cfg.Memory.DigestMaxChars,
			HistoryLimit:    cfg.Memory.HistoryLimit,
		},
		sessionMirror, log,
	)
	recorder := memory.NewRecorder(pg.DB, log)

	// --- Feedback service with optional SES/SNS alerts ---
	var notifier feedback.Notifier
	if cfg.Alerts.Enabled {
		notifyCfg := &notify.Config{
			EmailEnabled: cfg.Alerts.Email.Enabled,
			SMSEnabled:   cfg.Alerts.SMS.Enabled,
			FromEmail:    cfg.Alerts.Email.FromEmail,
			AWSRegion:    cfg.Alerts.AWS.Region,
			Timeout:      30 * time.Second,
		}
		if len(cfg.Alerts.Email.ToEmails) > 0 {
			notifyCfg.AlertEmail = cfg.Alerts.Email.ToEmails[0]
		}
		if len(cfg.Alerts.SMS.PhoneNumbers) > 0 {
			notifyCfg.AlertPhone = cfg.Alerts.SMS.PhoneNumbers[0]
		}

		var sesClient notify.SESService
		if notifyCfg.EmailEnabled {
			client, err := awsclient.NewSESClient(ctx, cfg.Alerts.AWS.Region)
			if err != nil {
				zapLog.Warn("SES client init failed, email alerts disabled", zap.Error(err))
				notifyCfg.EmailEnabled = false
			} else {
				sesClient = client
			}
		}

		var snsClient notify.SNSService
		if notifyCfg.SMSEnabled {
			client, err := awsclient.NewSNSClient(ctx, cfg.Alerts.AWS.Region)
			if err != nil {
				zapLog.Warn("SNS client init failed, SMS alerts disabled", zap.Error(err))
				notifyCfg.SMSEnabled = false
			} else {
				snsClient = client
			}
		}

		notifier = notify.NewNotifier(notifyCfg, sesClient, snsClient, log)
	}
	feedbackSvc := feedback.NewService(feedback.NewRecorder(pg.DB, log), notifier, log)

	// --- Conversation archive (nil when Elasticsearch is down) ---
	var conversationArchive analyst.ConversationArchive
	if esClient != nil {
		conversationArchive = archive.NewArchive(
			&archive.Config{
				Index:   cfg.Archive.Index,
				Timeout: 10 * time.Second,
			},
			esClient.Client, log,
		)
	}

	facade := analyst.NewAnalyst(
		&analyst.Config{
			DigestExchanges: cfg.Memory.DigestExchanges,
			DigestMaxChars:  cfg.Memory.DigestMaxChars,
			HistoryLimit:    cfg.Memory.HistoryLimit,
			SearchLimit:     5,
		},
		sessions, router, recorder, feedbackSvc, conversationArchive, log,
	)

	// --- Session sweeper ---
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		zapLog.Fatal("scheduler init failed", zap.Error(err))
	}
	_, err = scheduler.NewJob(
		gocron.DurationJob(config.GetDuration(cfg.Memory.SweepInterval)),
		gocron.NewTask(func() {
			if evicted := sessions.EvictExpired(); evicted > 0 {
				log.Info("expired sessions evicted", map[string]interface{}{
					"count": evicted,
				})
			}
		}),
	)
	if err != nil {
		zapLog.Fatal("sweep job registration failed", zap.Error(err))
	}
	scheduler.Start()
	zapLog.Info("session sweeper started",
		zap.Duration("interval", config.GetDuration(cfg.Memory.SweepInterval)),
	)

	// --- HTTP API Server ---
	api := &apiServer{
		analyst:    facade,
		obs:        obs,
		errors:     apperrors.NewErrorHandler(log),
		askTimeout: config.GetDuration(cfg.Server.AskTimeout),
	}

	http.HandleFunc("/api/v1/ask", api.handleAsk)
	http.HandleFunc("/api/v1/feedback", api.handleFeedback)
	http.HandleFunc("/api/v1/history", api.handleHistory)
	http.HandleFunc("/api/v1/history/search", api.handleSearch)
	http.HandleFunc("/api/v1/session/reset", api.handleReset)
	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	http.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Server.Port)}
	go func() {
		zapLog.Info("HTTP server listening", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("HTTP server shutdown failed", zap.Error(err))
	}
	if err := scheduler.Shutdown(); err != nil {
		zapLog.Error("scheduler shutdown failed", zap.Error(err))
	}

	zapLog.Info("Analyst server stopped gracefully")
}

// apiServer is the thin JSON surface over the analyst facade. Chat front
// ends receive the answer both whole and pre-split into sendable chunks.
type apiServer struct {
	analyst    *analyst.Analyst
	obs        *observability.Observability
	errors     *apperrors.ErrorHandler
	askTimeout time.Duration
}

type askRequest struct {
	SessionID string `json:"session_id"`
	Question  string `json:"question"`
}

type askResponse struct {
	SessionID string   `json:"session_id"`
	Answer    string   `json:"answer"`
	Chunks    []string `json:"chunks"`
}

type feedbackRequest struct {
	SessionID string `json:"session_id"`
	Comment   string `json:"comment"`
	Expected  string `json:"expected,omitempty"`
}

type messageResponse struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type historyResponse struct {
	SessionID string                        `json:"session_id"`
	Exchanges []models.ConversationExchange `json:"exchanges"`
}

type searchResponse struct {
	SessionID string `json:"session_id"`
	Query     string `json:"query"`
	Result    string `json:"result"`
}

type resetRequest struct {
	SessionID string `json:"session_id"`
}

func (s *apiServer) handleAsk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errors.WriteHTTPError(w, r.URL.Path, apperrors.NewInvalidRequestError("malformed JSON body"))
		return
	}
	// Anonymous callers get a fresh session
	if req.SessionID == "" {
		req.SessionID = uuid.New().String()
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.askTimeout)
	defer cancel()

	start := time.Now()
	answer, err := s.analyst.Ask(ctx, req.SessionID, req.Question)

	status := "success"
	if err != nil {
		status = "error"
	}
	s.obs.RecordQuestionProcessed(r.Context(), status)
	s.obs.RecordQuestionDuration(r.Context(), time.Since(start), status)

	if err != nil {
		s.errors.WriteHTTPError(w, r.URL.Path, err)
		return
	}

	writeJSON(w, http.StatusOK, askResponse{
		SessionID: req.SessionID,
		Answer:    answer,
		Chunks:    chunk.Split(answer, chunk.DefaultLimit),
	})
}

func (s *apiServer) handleFeedback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errors.WriteHTTPError(w, r.URL.Path, apperrors.NewInvalidRequestError("malformed JSON body"))
		return
	}
	if req.SessionID == "" {
		s.errors.WriteHTTPError(w, r.URL.Path, apperrors.NewInvalidRequestError("session_id is required"))
		return
	}
	if strings.TrimSpace(req.Comment) == "" {
		s.errors.WriteHTTPError(w, r.URL.Path, apperrors.NewInvalidRequestError("comment is required"))
		return
	}

	message, err := s.analyst.ReportError(r.Context(), req.SessionID, req.Comment, req.Expected)
	if err != nil {
		s.errors.WriteHTTPError(w, r.URL.Path, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{SessionID: req.SessionID, Message: message})
}

func (s *apiServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		s.errors.WriteHTTPError(w, r.URL.Path, apperrors.NewInvalidRequestError("session_id is required"))
		return
	}

	exchanges, err := s.analyst.History(r.Context(), sessionID)
	if err != nil {
		s.errors.WriteHTTPError(w, r.URL.Path, err)
		return
	}
	if exchanges == nil {
		exchanges = []models.ConversationExchange{}
	}

	writeJSON(w, http.StatusOK, historyResponse{SessionID: sessionID, Exchanges: exchanges})
}

func (s *apiServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		s.errors.WriteHTTPError(w, r.URL.Path, apperrors.NewInvalidRequestError("session_id is required"))
		return
	}
	query := r.URL.Query().Get("q")
	if strings.TrimSpace(query) == "" {
		s.errors.WriteHTTPError(w, r.URL.Path, apperrors.NewInvalidRequestError("q is required"))
		return
	}

	result, err := s.analyst.SearchHistory(r.Context(), sessionID, query)
	if err != nil {
		s.errors.WriteHTTPError(w, r.URL.Path, err)
		return
	}

	writeJSON(w, http.StatusOK, searchResponse{SessionID: sessionID, Query: query, Result: result})
}

func (s *apiServer) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req resetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errors.WriteHTTPError(w, r.URL.Path, apperrors.NewInvalidRequestError("malformed JSON body"))
		return
	}
	if req.SessionID == "" {
		s.errors.WriteHTTPError(w, r.URL.Path, apperrors.NewInvalidRequestError("session_id is required"))
		return
	}

	if err := s.analyst.Reset(r.Context(), req.SessionID); err != nil {
		s.errors.WriteHTTPError(w, r.URL.Path, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{
		SessionID: req.SessionID,
		Message:   "🔄 Новая сессия начата!",
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
