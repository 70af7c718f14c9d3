// Package main runs the copy trader: it follows one wallet's swaps on
// Raydium and Jupiter, mirrors them with the operator wallet and sells
// positions once they reach the profit target.
package main

import (
	"flag"
	"os"

	"solana-copy-trader/internal/app"
)

func main() {
	configPath := flag.String("config", os.Getenv("COPYTRADER_CONFIG"), "Path to YAML config file (optional, env overrides apply)")
	flag.Parse()

	app.New(app.ConfigPath(*configPath)).Run()
}
