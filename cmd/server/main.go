package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"github.com/coinsandsteel/knightlands-server-sub000/internal/config"
	"github.com/coinsandsteel/knightlands-server-sub000/internal/events/broadcast"
	kafkaevents "github.com/coinsandsteel/knightlands-server-sub000/internal/events/kafka"
	"github.com/coinsandsteel/knightlands-server-sub000/internal/interfaces"
	"github.com/coinsandsteel/knightlands-server-sub000/internal/ledger"
	"github.com/coinsandsteel/knightlands-server-sub000/internal/logger"
	"github.com/coinsandsteel/knightlands-server-sub000/internal/models"
	"github.com/coinsandsteel/knightlands-server-sub000/internal/settlement"
	"github.com/coinsandsteel/knightlands-server-sub000/internal/storage/memory"
	"github.com/coinsandsteel/knightlands-server-sub000/internal/storage/postgres"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	log := logger.New(cfg.Verbose)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var store interfaces.LedgerStore
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.Error("open postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		pgStore := postgres.NewPostgresLedgerStore(db)
		if err := pgStore.EnsureSchema(ctx); err != nil {
			log.Error("ensure schema", "error", err)
			os.Exit(1)
		}
		store = pgStore
		log.Info("using postgres store")
	} else {
		store = memory.NewMemoryLedgerStore()
		log.Warn("no DATABASE_URL set, ledger state is in-memory only")
	}

	var publisher interfaces.EventPublisher
	var broadcaster *broadcast.Broadcaster
	if cfg.KafkaBrokers != "" {
		kp := kafkaevents.NewPublisher(strings.Split(cfg.KafkaBrokers, ","))
		defer kp.Close()
		publisher = kp
		log.Info("publishing ledger events to kafka", "brokers", cfg.KafkaBrokers)
	} else {
		broadcaster = broadcast.New(256)
		defer broadcaster.Close()
		publisher = broadcaster
	}

	settler := settlement.NewRecorder(log)

	kinds := make(map[string]*ledger.Kind)
	for _, preset := range ledger.Presets() {
		kcfg := preset.Config()
		kcfg.Store = store
		kcfg.Settler = settler
		kcfg.Publisher = publisher
		kcfg.Logger = log

		kind, err := ledger.New(kcfg)
		if err != nil {
			log.Error("build ledger kind", "kind", preset.Name, "error", err)
			os.Exit(1)
		}
		if err := kind.Init(ctx); err != nil {
			log.Error("init ledger kind", "kind", preset.Name, "error", err)
			os.Exit(1)
		}
		defer kind.Close()
		kinds[preset.Name] = kind
	}

	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/ledgers/{kind}", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, req *http.Request) {
			kind, ok := kinds[chi.URLParam(req, "kind")]
			if !ok {
				http.Error(w, "unknown ledger kind", http.StatusNotFound)
				return
			}
			st := kind.LatestState()
			writeJSON(w, http.StatusOK, map[string]any{
				"kind":              kind.Name(),
				"current_epoch":     int64(st.CurrentEpoch),
				"total_points":      st.TotalPoints,
				"total_shares":      st.TotalShares,
				"total_free_points": st.TotalFreePoints,
				"total_free_shares": st.TotalFreeShares,
			})
		})

		r.Post("/contributions", func(w http.ResponseWriter, req *http.Request) {
			kind, ok := kinds[chi.URLParam(req, "kind")]
			if !ok {
				http.Error(w, "unknown ledger kind", http.StatusNotFound)
				return
			}

			var body struct {
				UserID string  `json:"user_id"`
				Tier   string  `json:"tier"`
				Amount float64 `json:"amount"`
			}
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil || body.UserID == "" {
				http.Error(w, "invalid request body", http.StatusBadRequest)
				return
			}
			tier := models.TierPaid
			if body.Tier == "free" {
				tier = models.TierFree
			}

			if err := kind.AddPoints(req.Context(), body.UserID, tier, body.Amount); err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			writeJSON(w, http.StatusCreated, map[string]string{"status": "recorded"})
		})

		r.Post("/users/{userID}/settle", func(w http.ResponseWriter, req *http.Request) {
			kind, ok := kinds[chi.URLParam(req, "kind")]
			if !ok {
				http.Error(w, "unknown ledger kind", http.StatusNotFound)
				return
			}
			if err := kind.TrySettle(req.Context(), chi.URLParam(req, "userID")); err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			writeJSON(w, http.StatusOK, map[string]string{"status": "settled"})
		})

		r.Get("/users/{userID}", func(w http.ResponseWriter, req *http.Request) {
			kind, ok := kinds[chi.URLParam(req, "kind")]
			if !ok {
				http.Error(w, "unknown ledger kind", http.StatusNotFound)
				return
			}
			st, err := kind.UserState(req.Context(), chi.URLParam(req, "userID"))
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			if st == nil {
				http.Error(w, "no ledger state for user", http.StatusNotFound)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{
				"user_id":      st.UserID,
				"tier":         st.Tier.String(),
				"last_claimed": int64(st.LastClaimedEpoch),
				"points_pool":  st.PointsPool,
				"shares_pool":  st.SharesPool,
				"shares":       st.Shares,
				"score":        st.Score,
			})
		})
	})

	r.Get("/balances/{userID}", func(w http.ResponseWriter, req *http.Request) {
		userID := chi.URLParam(req, "userID")
		writeJSON(w, http.StatusOK, map[string]decimal.Decimal{
			userID: settler.Balance(userID),
		})
	})

	srv := &http.Server{Addr: cfg.Addr, Handler: r}
	go func() {
		log.Info("ledger server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
