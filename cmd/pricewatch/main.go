package main

import (
	"pricewatch/cmd/handlers"
	"pricewatch/internal/logger"
)

func main() {
	logger.Init() // Initialize the logger
	handlers.Execute()
}
