package main

import (
	"os"

	"sparkchat/backend/internal/app"
)

// @title       SparkChat API
// @version     1.0
// @description Web chat backend: login, chat collection and message exchange against a remote generative API.
// @BasePath    /api
func main() {
	os.Exit(app.Run())
}
