package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/patchops/suggestd/internal/apply"
	"github.com/patchops/suggestd/internal/config"
	"github.com/patchops/suggestd/internal/remote"
	"github.com/patchops/suggestd/internal/suggestion"
	"github.com/patchops/suggestd/internal/web"
)

var (
	loadDotEnv         = godotenv.Load
	loadConfig         = config.Load
	newStore           = suggestion.NewStore
	defaultListenServe = http.ListenAndServe
)

func main() {
	if err := run(context.Background(), defaultListenServe); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func run(ctx context.Context, serve func(string, http.Handler) error) error {
	// Load .env file (ignore error if file doesn't exist)
	_ = loadDotEnv()

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log.Printf("Starting suggestd server...")
	log.Printf("Port: %d", cfg.Port)
	log.Printf("Repository: %s", cfg.Repo())
	log.Printf("Base branch: %s", cfg.BaseBranch)

	token, err := resolveToken(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to resolve GitHub credentials: %w", err)
	}

	client := remote.NewGitHubClient(token, cfg.RepoOwner, cfg.RepoName)
	store := newStore()
	orchestrator := apply.New(store, client, cfg.BaseBranch)

	r := mux.NewRouter()
	web.NewHandler(store, orchestrator).RegisterRoutes(r)

	addr := fmt.Sprintf(":%d", cfg.Port)
	log.Printf("Server listening on %s", addr)
	log.Printf("Suggestions API: http://localhost%s/suggestions", addr)
	log.Printf("Health check: http://localhost%s/healthz", addr)

	if err := serve(addr, r); err != nil {
		return fmt.Errorf("server failed to start: %w", err)
	}

	return nil
}

// resolveToken picks the configured credential path: a static token wins,
// otherwise App credentials mint an installation token for the target repo.
func resolveToken(ctx context.Context, cfg *config.Config) (string, error) {
	if !cfg.UseAppAuth() {
		return remote.StaticToken(cfg.GitHubToken).Token(ctx)
	}

	log.Printf("Using GitHub App auth, App ID: %s", cfg.GitHubAppID)
	appAuth := &remote.AppAuth{
		AppID:      cfg.GitHubAppID,
		PrivateKey: cfg.GitHubPrivateKey,
		Repo:       cfg.Repo(),
	}
	return appAuth.Token(ctx)
}
