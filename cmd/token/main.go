package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/BradenHooton/staffguard/internal/auth"
	"github.com/BradenHooton/staffguard/internal/config"
	"github.com/BradenHooton/staffguard/internal/models"
)

// token mints a bearer token for a calling service, signed with SERVICE_TOKEN_SECRET.
//
//	token -service staff-portal [-role app|admin] [-ttl 720h]
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	service := flag.String("service", "", "name of the calling service (token subject)")
	role := flag.String("role", models.ServiceRoleApp, "service role (app or admin)")
	ttl := flag.Duration("ttl", 30*24*time.Hour, "token lifetime")
	flag.Parse()

	if *service == "" {
		logger.Error("missing -service")
		os.Exit(2)
	}
	if *ttl <= 0 {
		logger.Error("-ttl must be positive", slog.Duration("ttl", *ttl))
		os.Exit(2)
	}

	secret, err := config.LoadServiceTokenSecret()
	if err != nil {
		logger.Error("failed to load service token secret", slog.Any("error", err))
		os.Exit(1)
	}

	token, err := auth.NewTokenManager(secret).GenerateServiceToken(*service, *role, *ttl)
	if err != nil {
		logger.Error("failed to generate service token", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("service token issued",
		slog.String("service", *service),
		slog.String("role", *role),
		slog.Time("expires_at", time.Now().Add(*ttl).UTC()))

	fmt.Println(token)
}
