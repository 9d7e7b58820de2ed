package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/dgellow/ortho-diary/internal"
	"github.com/dgellow/ortho-diary/internal/config"
	"github.com/dgellow/ortho-diary/internal/envutil"
	"github.com/dgellow/ortho-diary/internal/log"
)

var BuildVersion = "dev"

func generateDefaultConfig(path string) error {
	defaultConfig := map[string]any{
		"version": "v1",
		"server": map[string]any{
			"addr":              ":3001",
			"defaultOrigin":     "http://localhost:5173",
			"allowedOrigins":    []string{"http://localhost:5173"},
			"sessionSigningKey": map[string]string{"$env": "SESSION_SIGNING_KEY"},
			"sessionTtl":        "168h",
			"rateLimit": map[string]any{
				"requestsPerSecond": 1,
				"burst":             10,
			},
		},
		"providers": map[string]any{
			"kakao": map[string]any{
				"clientId": map[string]string{"$env": "KAKAO_APP_KEY"},
			},
			"naver": map[string]any{
				"clientId":     map[string]string{"$env": "NAVER_CLIENT_ID"},
				"clientSecret": map[string]string{"$env": "NAVER_CLIENT_SECRET"},
			},
			"google": map[string]any{
				"clientId":     map[string]string{"$env": "GOOGLE_CLIENT_ID"},
				"clientSecret": map[string]string{"$env": "GOOGLE_CLIENT_SECRET"},
			},
		},
		"storage": map[string]any{
			"kind":             "firestore",
			"gcpProject":       map[string]string{"$env": "GCP_PROJECT"},
			"deletedRetention": "720h",
		},
		"admin": map[string]any{
			"enabled":     true,
			"adminEmails": []string{"admin@yourclinic.kr"},
		},
	}

	data, err := json.MarshalIndent(defaultConfig, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func validateConfig(path string) error {
	result, err := config.ValidateFile(path)
	if err != nil {
		return fmt.Errorf("error during validation: %w", err)
	}

	fmt.Printf("Validating: %s\n", path)

	if len(result.Errors) > 0 {
		fmt.Printf("\nErrors (%d):\n", len(result.Errors))
		for _, err := range result.Errors {
			if err.Path != "" {
				fmt.Printf("  - %s: %s\n", err.Path, err.Message)
			} else {
				fmt.Printf("  - %s\n", err.Message)
			}
		}
	}

	if len(result.Warnings) > 0 {
		fmt.Printf("\nWarnings (%d):\n", len(result.Warnings))
		for _, warn := range result.Warnings {
			if warn.Path != "" {
				fmt.Printf("  - %s: %s\n", warn.Path, warn.Message)
			} else {
				fmt.Printf("  - %s\n", warn.Message)
			}
		}
	}

	fmt.Println()
	switch {
	case len(result.Errors) > 0:
		fmt.Println("Result: FAIL")
		return fmt.Errorf("validation failed: %d error(s)", len(result.Errors))
	case len(result.Warnings) > 0:
		fmt.Println("Result: PASS (with warnings)")
	default:
		fmt.Println("Result: PASS")
	}
	return nil
}

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		log.LogInfoWithFields("main", "No config file given, reading environment", nil)
		return config.FromEnv()
	}
	return config.Load(path)
}

func main() {
	conf := flag.String("config", "", "path to config file (environment variables are used when empty)")
	version := flag.Bool("version", false, "print version and exit")
	help := flag.Bool("help", false, "print help and exit")
	configInit := flag.String("config-init", "", "generate default config file at specified path")
	validate := flag.Bool("validate", false, "validate config file and exit")
	envFile := flag.String("env-file", ".env", "environment file to load before reading config")
	flag.Parse()
	if *help {
		flag.Usage()
		return
	}
	if *version {
		fmt.Println(BuildVersion)
		return
	}
	if *configInit != "" {
		if err := generateDefaultConfig(*configInit); err != nil {
			log.LogError("Failed to generate config: %v", err)
			os.Exit(1)
		}
		fmt.Printf("Generated default config at: %s\n", *configInit)
		return
	}

	if err := envutil.LoadDotEnv(*envFile); err != nil {
		log.LogError("Failed to load %s: %v", *envFile, err)
		os.Exit(1)
	}

	if *validate {
		if *conf == "" {
			fmt.Fprintf(os.Stderr, "Error: -config flag is required for validation\n")
			os.Exit(1)
		}
		if err := validateConfig(*conf); err != nil {
			os.Exit(1)
		}
		return
	}

	cfg, err := loadConfig(*conf)
	if err != nil {
		log.LogError("Failed to load config: %v", err)
		os.Exit(1)
	}

	log.LogInfoWithFields("main", "Starting ortho-diary", map[string]any{
		"version": BuildVersion,
		"config":  *conf,
	})

	ctx := context.Background()
	app, err := internal.NewOrthoDiary(ctx, cfg)
	if err != nil {
		log.LogError("Failed to create application: %v", err)
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		log.LogError("Server stopped with error: %v", err)
		os.Exit(1)
	}
}
