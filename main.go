package main

import (
	"context"
	"flag"
	"os"

	"github.com/joho/godotenv"

	"github.com/Srahin000/bumblebee-smart-speaker/core"
	"github.com/Srahin000/bumblebee-smart-speaker/factories"
)

func main() {
	var settingsPath string
	flag.StringVar(&settingsPath, "settings", "", "path to settings.json (defaults to $SETTINGS_PATH, then ./settings.json)")
	flag.Parse()

	logger := core.GetLogger()

	if err := godotenv.Load(".env.local"); err != nil {
		logger.With(map[string]any{"error": err}).Warn("No .env.local file found or failed to load")
	}

	if settingsPath == "" {
		settingsPath = getEnv("SETTINGS_PATH", "./settings.json")
	}

	settings, err := factories.SettingsConfigFromFile(settingsPath)
	if err != nil {
		logger.With(map[string]any{"path": settingsPath, "error": err}).Warn("failed to load settings, using defaults")
		settings = factories.DefaultSettingsConfig()
	}
	settings.InjectAPIKeys(factories.APIKeys{
		OpenAI: getEnv("OPENAI_API_KEY", ""),
	})

	app, err := factories.BuildApp(context.Background(), settings, logger)
	if err != nil {
		logger.With(map[string]any{"error": err}).Fatal("failed to build application")
	}

	if err := app.Run(); err != nil {
		logger.With(map[string]any{"error": err}).Fatal("server stopped")
	}
}

// getEnv returns the environment variable value or a default when unset.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
