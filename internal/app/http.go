package app

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"solana-copy-trader/internal/config"
	"solana-copy-trader/internal/domain"
	"solana-copy-trader/internal/ledger"
	"solana-copy-trader/internal/observability"
	"solana-copy-trader/internal/storage"
)

// HTTPModule serves /metrics, /health, /positions and /trades.
func HTTPModule() fx.Option {
	return fx.Module("http",
		fx.Provide(NewMux),
		fx.Invoke(runHTTP),
	)
}

type positionView struct {
	Mint         string    `json:"mint"`
	Symbol       string    `json:"symbol"`
	DEX          string    `json:"dex"`
	Pool         string    `json:"pool,omitempty"`
	Amount       string    `json:"amount"`
	Decimals     int       `json:"decimals"`
	FeeSOL       string    `json:"fee_sol"`
	BuySignature string    `json:"buy_signature"`
	OpenedAt     time.Time `json:"opened_at"`
}

type tradeView struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	Wallet    string    `json:"wallet"`
	DEX       string    `json:"dex,omitempty"`
	Token     string    `json:"token"`
	Amount    string    `json:"amount"`
	Reason    string    `json:"reason"`
}

// NewMux builds the HTTP routes.
func NewMux(l *ledger.Ledger, trades storage.TradeLogStore) *http.ServeMux {
	started := time.Now()
	mux := http.NewServeMux()

	mux.Handle("GET /metrics", observability.Handler())

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":         "ok",
			"open_positions": len(l.Snapshot()),
			"tracked":        l.Len(),
			"uptime_sec":     int64(time.Since(started).Seconds()),
		})
	})

	mux.HandleFunc("GET /positions", func(w http.ResponseWriter, _ *http.Request) {
		positions := l.Snapshot()
		out := make([]positionView, 0, len(positions))
		for _, p := range positions {
			out = append(out, toPositionView(p))
		}
		writeJSON(w, http.StatusOK, out)
	})

	mux.HandleFunc("GET /trades", func(w http.ResponseWriter, r *http.Request) {
		limit := 0
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
				return
			}
			limit = n
		}
		entries, err := trades.Recent(r.Context(), limit)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		out := make([]tradeView, 0, len(entries))
		for _, e := range entries {
			out = append(out, tradeView{
				ID:        e.ID,
				Timestamp: e.Timestamp,
				Action:    e.Action,
				Wallet:    e.Wallet,
				DEX:       string(e.DEX),
				Token:     e.Token,
				Amount:    e.Amount,
				Reason:    e.Reason,
			})
		}
		writeJSON(w, http.StatusOK, out)
	})

	return mux
}

func toPositionView(p domain.Position) positionView {
	return positionView{
		Mint:         p.Mint,
		Symbol:       p.Symbol,
		DEX:          string(p.DEX),
		Pool:         p.PoolAddress(),
		Amount:       p.Amount.String(),
		Decimals:     p.Decimals,
		FeeSOL:       p.Fee.String(),
		BuySignature: p.BuySignature,
		OpenedAt:     p.OpenedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func runHTTP(lc fx.Lifecycle, cfg *config.Config, mux *http.ServeMux, logger *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.Metrics.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ln, err := net.Listen("tcp", cfg.Metrics.Addr)
			if err != nil {
				return err
			}
			logger.Info("http server listening", zap.String("addr", cfg.Metrics.Addr))
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}
