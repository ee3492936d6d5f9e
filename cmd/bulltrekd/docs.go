package main

//go:generate swag init -g cmd/bulltrekd/main.go -o docs

// @title           Bulltrek Strategy Desk API
// @version         0.1.0
// @description     Strategy creation, backtest, paper and live trading dispatch.
// @host            localhost:8080
// @BasePath        /
// @schemes         http
