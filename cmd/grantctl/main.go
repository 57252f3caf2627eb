// Command grantctl консольный клиент GrantGenius: поиск грантов,
// генерация черновиков и редактирование заявок с автосохранением.
package main

import (
	"fmt"
	"os"

	"github.com/grantgenius/grantgenius-backend/internal/logger"
)

func main() {
	logger.Init(getenv("GRANTCTL_LOG_LEVEL", "warn"), "development")
	logger.Log.SetOutput(os.Stderr)

	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func getenv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
