package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"trademate/internal/domain"
	"trademate/internal/repository"
	"trademate/internal/rl"
	"trademate/internal/rl/qnet"
	"trademate/internal/rl/registry"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/otel/trace"
)

const (
	cmdTrain = "train"
	cmdPrune = "prune"

	policyModelKey = "policy-qnet"
	trainInterval  = "1h"
)

var (
	loadEnvFunc = godotenv.Load
	openPool    = pgxpool.New
)

func main() {
	loadEnvFunc()

	if len(os.Args) < 2 {
		log.Fatalf("usage: go run ./cmd/trainpolicy [train|prune] [args]")
	}

	dsn := os.Getenv("DATABASE_URL")
	if strings.TrimSpace(dsn) == "" {
		log.Fatal("DATABASE_URL is required")
	}

	ctx := context.Background()
	pool, err := openPool(ctx, dsn)
	if err != nil {
		log.Fatalf("connect to postgres: %v", err)
	}
	defer pool.Close()

	tracer := trace.NewNoopTracerProvider().Tracer("trainpolicy")

	switch os.Args[1] {
	case cmdTrain:
		activate := len(os.Args) > 2 && os.Args[2] == "--activate"
		windowDays := envDays("TRAIN_WINDOW_DAYS", 90)
		if err := runTraining(ctx, pool, tracer, windowDays, activate); err != nil {
			log.Fatalf("training failed: %v", err)
		}
	case cmdPrune:
		days := 90
		if len(os.Args) > 2 {
			n, err := strconv.Atoi(os.Args[2])
			if err != nil || n <= 0 {
				log.Fatalf("invalid prune days: %q", os.Args[2])
			}
			days = n
		}
		repo := repository.NewCandleRepository(pool, tracer)
		cutoff := time.Now().UTC().AddDate(0, 0, -days)
		pruned, err := repo.PruneBefore(ctx, cutoff)
		if err != nil {
			log.Fatalf("prune failed: %v", err)
		}
		log.Printf("pruned %d candles older than %s", pruned, cutoff.Format(time.RFC3339))
	default:
		log.Fatalf("unknown command %q. usage: go run ./cmd/trainpolicy [train|prune] [args]", os.Args[1])
	}
}

func runTraining(ctx context.Context, pool *pgxpool.Pool, tracer trace.Tracer, windowDays int, activate bool) error {
	candleRepo := repository.NewCandleRepository(pool, tracer)
	builder := rl.NewDatasetBuilder(tracer)
	opts := rl.DefaultDatasetOptions()

	to := time.Now().UTC()
	from := to.AddDate(0, 0, -windowDays)

	var states [][]float64
	var actions []int
	perSymbol := make(map[string]int, len(domain.SupportedSymbols))
	for _, symbol := range domain.SupportedSymbols {
		candles, err := candleRepo.GetCandlesInRange(ctx, symbol, trainInterval, from, to)
		if err != nil {
			return fmt.Errorf("load %s candles: %w", symbol, err)
		}
		examples := builder.Build(ctx, symbol, derefCandles(candles), opts)
		for _, ex := range examples {
			states = append(states, ex.State)
			actions = append(actions, ex.Action)
		}
		perSymbol[symbol] = len(examples)
		log.Printf("%s: %d candles, %d examples", symbol, len(candles), len(examples))
	}
	if len(states) == 0 {
		return fmt.Errorf("no training examples in the last %d days, run the candle poller first", windowDays)
	}

	trainOpts := qnet.DefaultTrainOptions()
	model, err := qnet.Train(states, actions, rl.StateFeatureNames, trainOpts)
	if err != nil {
		return err
	}
	blob, err := model.MarshalBinary()
	if err != nil {
		return err
	}

	actionCounts := make(map[string]int, qnet.NumActions)
	for _, a := range actions {
		actionCounts[domain.PolicyAction(a).String()]++
	}
	metrics, _ := json.Marshal(map[string]any{
		"samples":     len(states),
		"per_symbol":  perSymbol,
		"per_action":  actionCounts,
		"window_days": windowDays,
	})
	hyperparams, _ := json.Marshal(map[string]any{
		"rounds":         trainOpts.Rounds,
		"learning_rate":  trainOpts.LearningRate,
		"max_depth":      trainOpts.MaxDepth,
		"window":         opts.Window,
		"horizon":        opts.Horizon,
		"buy_threshold":  opts.BuyThreshold,
		"sell_threshold": opts.SellThreshold,
	})

	repo := registry.NewRepository(pool, tracer)
	version, err := repo.NextVersion(ctx, policyModelKey)
	if err != nil {
		return err
	}
	stored, err := repo.InsertModelVersion(ctx, domain.PolicyModelVersion{
		ModelKey:        policyModelKey,
		Version:         version,
		StateSpec:       rl.StateSpecVersion,
		TrainedFrom:     from,
		TrainedTo:       to,
		TrainedAt:       time.Now().UTC(),
		HyperparamsJSON: string(hyperparams),
		MetricsJSON:     string(metrics),
		ArtifactFormat:  "boo-json",
		ArtifactBlob:    blob,
	})
	if err != nil {
		return err
	}
	log.Printf("stored policy model %s v%d (%d samples)", stored.ModelKey, stored.Version, len(states))

	if activate {
		if err := repo.ActivateModel(ctx, policyModelKey, stored.Version); err != nil {
			return err
		}
		log.Printf("activated policy model %s v%d", policyModelKey, stored.Version)
	}
	return nil
}

func derefCandles(in []*domain.Candle) []domain.Candle {
	out := make([]domain.Candle, 0, len(in))
	for _, c := range in {
		if c != nil {
			out = append(out, *c)
		}
	}
	return out
}

func envDays(key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
		log.Printf("invalid %s=%q, using %d", key, v, def)
	}
	return def
}
