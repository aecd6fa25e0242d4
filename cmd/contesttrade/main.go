package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"contesttrade/internal/config"
	"contesttrade/internal/contest"
	"contesttrade/internal/logging"
	"contesttrade/internal/market"
	"contesttrade/internal/observability"
	"contesttrade/internal/research"
	"contesttrade/internal/runtime"
	"contesttrade/internal/workflow"
)

const defaultRunTimeout = 10 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	triggerTime := flag.String("trigger-time", "", "Trigger time for this run, as \"YYYY-MM-DD HH:MM:SS\" (defaults to now)")
	calendarFile := flag.String("calendar-file", "", "Path to a static trading-calendar JSON file")
	pricesFile := flag.String("prices-file", "", "Path to a static price-quotes JSON file")
	cnResolverFile := flag.String("cn-resolver-file", "", "Path to a CN-Stock name/code resolver JSON file")
	beliefListPath := flag.String("belief-list", "", "Path to the research agent belief-list JSON file")
	modelFile := flag.String("model-dir", "", "Directory holding mean_model.json/std_model.json for predicted Sharpe")
	flag.Parse()

	if err := run(cfg, *triggerTime, *calendarFile, *pricesFile, *cnResolverFile, *beliefListPath, *modelFile); err != nil {
		log.Fatal().Err(err).Msg("contesttrade")
	}
}

func run(cfg config.Config, triggerTime, calendarFile, pricesFile, cnResolverFile, beliefListPath, modelDir string) error {
	logging.Init(cfg.LogPath, cfg.LogLevel)
	log.Info().Msg("contesttrade starting")

	baseCtx := context.Background()
	shutdown, err := observability.InitOTel(baseCtx, cfg.Obs)
	if err != nil {
		log.Warn().Err(err).Msg("otel init failed, continuing without observability")
		shutdown = nil
	}
	if shutdown != nil {
		defer func() { _ = shutdown(context.Background()) }()
	}

	if triggerTime == "" {
		triggerTime = time.Now().Format("2006-01-02 15:04:05")
	}

	var calendar market.Calendar
	var prices market.PriceSource
	resolvers := map[string]market.SymbolResolver{}

	if calendarFile != "" {
		calendar, err = market.LoadStaticCalendarFile(calendarFile)
		if err != nil {
			return fmt.Errorf("load calendar file: %w", err)
		}
	}
	if pricesFile != "" {
		prices, err = market.LoadStaticPriceSourceFile(pricesFile)
		if err != nil {
			return fmt.Errorf("load prices file: %w", err)
		}
	}
	if cnResolverFile != "" {
		cnResolver, err := market.LoadCNStockResolver(cnResolverFile)
		if err != nil {
			return fmt.Errorf("load CN-Stock resolver: %w", err)
		}
		resolvers["CN-Stock"] = cnResolver
	}

	rt, err := runtime.New(cfg, calendar, prices, resolvers)
	if err != nil {
		return fmt.Errorf("build runtime: %w", err)
	}

	var beliefs []research.BeliefEntry
	if beliefListPath != "" {
		beliefs, err = research.LoadBeliefList(beliefListPath)
		if err != nil {
			return fmt.Errorf("load belief list: %w", err)
		}
	}

	var predictor *contest.Predictor
	if modelDir != "" {
		predictor, err = loadPredictor(modelDir)
		if err != nil {
			log.Warn().Err(err).Msg("predicted sharpe models unavailable, continuing without them")
			predictor = nil
		}
	}

	var runner contest.Runner
	if rt.Market != nil {
		dr, err := rt.BuildContestRunner(predictor)
		if err != nil {
			return fmt.Errorf("build contest runner: %w", err)
		}
		runner = dr
	} else {
		log.Warn().Msg("no market data configured, contest weighting will be skipped")
	}

	wfCfg := workflow.Config{}.WithDefaults()
	company, err := rt.BuildCompany(wfCfg, beliefs, runner)
	if err != nil {
		return fmt.Errorf("build company: %w", err)
	}

	ctx, cancel := context.WithTimeout(baseCtx, defaultRunTimeout)
	defer cancel()

	out, err := company.Run(ctx, workflow.CompanyInput{TriggerTime: triggerTime})
	if err != nil {
		return fmt.Errorf("company run: %w", err)
	}

	log.Info().
		Int("factors", len(out.DataFactors)).
		Int("signals", len(out.ResearchSignals)).
		Msg("company run complete")
	return nil
}

func loadPredictor(dir string) (*contest.Predictor, error) {
	meanModel, err := contest.LoadLinearModel(dir + "/mean_model.json")
	if err != nil {
		return nil, fmt.Errorf("load mean model: %w", err)
	}
	stdModel, err := contest.LoadLinearModel(dir + "/std_model.json")
	if err != nil {
		return nil, fmt.Errorf("load std model: %w", err)
	}
	return contest.NewPredictor(meanModel, stdModel)
}
