package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/trogers1052/stock-history-loader/internal/config"
	"github.com/trogers1052/stock-history-loader/internal/logging"
	"github.com/trogers1052/stock-history-loader/internal/marketdata"
	"github.com/trogers1052/stock-history-loader/internal/pipeline"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config error: %v", err)
	}
	logger := logging.New(cfg.Log)

	req, err := prompt(os.Stdin, os.Stdout)
	if err != nil {
		logger.Fatalf("invalid input: %v", err)
	}

	source := marketdata.NewYahooClient(cfg.MarketData.BaseURL, cfg.MarketData.UserAgent, cfg.MarketData.Timeout, logger)
	exporter := pipeline.NewExporter(source, cfg.Export.Dir, logger)

	path, err := exporter.Run(ctx, req)
	if err != nil {
		logger.WithError(err).Error("an error occurred")
		os.Exit(1)
	}
	fmt.Fprintf(os.Stdout, "Data saved to %s\n", path)
}

// prompt asks for ticker, start and end date, one line each
func prompt(in io.Reader, out io.Writer) (pipeline.Request, error) {
	scanner := bufio.NewScanner(in)
	ask := func(question string) string {
		fmt.Fprint(out, question)
		if !scanner.Scan() {
			return ""
		}
		return strings.TrimSpace(scanner.Text())
	}

	ticker := strings.ToUpper(ask("Enter stock ticker (e.g., AAPL): "))
	start := ask("Enter start date (YYYY-MM-DD): ")
	end := ask("Enter end date (YYYY-MM-DD): ")
	if err := scanner.Err(); err != nil {
		return pipeline.Request{}, err
	}
	return pipeline.ParseRequest(ticker, start, end)
}
