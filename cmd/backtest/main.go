package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/dkovalev/crypto_score_bot/internal/backtest"
	"github.com/dkovalev/crypto_score_bot/internal/domain"
	"github.com/dkovalev/crypto_score_bot/internal/infrastructure/exchange"
	"github.com/dkovalev/crypto_score_bot/internal/infrastructure/logger"
	"github.com/dkovalev/crypto_score_bot/internal/usecase"
	"go.uber.org/zap"
)

func main() {
	symbol := flag.String("symbol", "BTCUSDT", "trading pair")
	interval := flag.String("interval", "1h", "candle interval")
	limit := flag.Int("limit", 500, "number of candles to fetch")
	csvPath := flag.String("csv", "", "replay candles from a CSV file instead of fetching (time,open,high,low,close,volume)")
	balance := flag.Float64("balance", 10000, "initial balance")
	jsonOut := flag.Bool("json", false, "print the full report as JSON")
	logLevel := flag.String("log-level", "warn", "log level")
	flag.Parse()

	log, err := logger.NewLogger(*logLevel)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	candles, err := loadCandles(*csvPath, *symbol, *interval, *limit, log)
	if err != nil {
		log.Fatal("Failed to load candles", zap.Error(err))
	}

	scoring := usecase.NewScoringService([]string{*interval}, log)
	risk := usecase.NewRiskGate(domain.DefaultRiskParameters(), log)

	runner := backtest.NewRunner(backtest.Config{
		Symbol:         *symbol,
		Interval:       *interval,
		InitialBalance: *balance,
	}, scoring, risk, log)

	report, err := runner.Run(candles)
	if err != nil {
		log.Fatal("Backtest failed", zap.Error(err))
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			log.Fatal("Failed to encode report", zap.Error(err))
		}
		return
	}

	printReport(report)
}

func loadCandles(csvPath, symbol, interval string, limit int, log *zap.Logger) ([]domain.Candle, error) {
	if csvPath != "" {
		return readCSV(csvPath)
	}
	adapter := exchange.NewBybitAdapter("", "", "", log)
	return adapter.FetchHistory(context.Background(), symbol, interval, limit)
}

func readCSV(path string) ([]domain.Candle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, err
	}

	var candles []domain.Candle
	for i, row := range rows {
		if len(row) < 6 {
			return nil, fmt.Errorf("row %d: expected 6 columns, got %d", i+1, len(row))
		}
		ts, err := strconv.ParseInt(row[0], 10, 64)
		if err != nil {
			// Tolerate a header row.
			if i == 0 {
				continue
			}
			return nil, fmt.Errorf("row %d: bad timestamp %q", i+1, row[0])
		}
		open, _ := strconv.ParseFloat(row[1], 64)
		high, _ := strconv.ParseFloat(row[2], 64)
		low, _ := strconv.ParseFloat(row[3], 64)
		closePrice, _ := strconv.ParseFloat(row[4], 64)
		volume, _ := strconv.ParseFloat(row[5], 64)

		candles = append(candles, domain.Candle{
			Time: ts, Open: open, High: high, Low: low, Close: closePrice, Volume: volume,
		})
	}
	return candles, nil
}

func printReport(report *backtest.Report) {
	fmt.Printf("Backtest report for %s\n", report.Symbol)
	fmt.Printf("  Initial balance: %.2f\n", report.InitialBalance)
	fmt.Printf("  Final balance:   %.2f\n", report.FinalBalance)
	fmt.Printf("  Total PnL:       %.2f\n", report.TotalPnL)
	fmt.Printf("  Trades:          %d (wins %d, losses %d)\n", report.TradeCount, report.Wins, report.Losses)
	fmt.Printf("  Win rate:        %.1f%%\n", report.WinRate*100)
	fmt.Println()

	for i, t := range report.Trades {
		fmt.Printf("  #%d %s entry %.2f @ %s exit %.2f @ %s pnl %.2f (%.2f%%) [%s]\n",
			i+1, t.Side,
			t.EntryPrice, t.EntryTime.Format("2006-01-02 15:04"),
			t.ExitPrice, t.ExitTime.Format("2006-01-02 15:04"),
			t.PnL, t.ReturnPct, t.Reason)
	}
}
