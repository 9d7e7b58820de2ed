package config

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"
)

// ValidationResult holds validation errors and warnings
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationError
}

// ValidationError represents a validation issue
type ValidationError struct {
	Path    string
	Message string
}

// IsValid returns true if there are no errors
func (v *ValidationResult) IsValid() bool {
	return len(v.Errors) == 0
}

var bashStyleRegex = regexp.MustCompile(`\$\{?([A-Z_][A-Z0-9_]*)\}?`)

// ValidateFile validates a config file structure without requiring env vars
func ValidateFile(path string) (*ValidationResult, error) {
	result := &ValidationResult{}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var rawConfig map[string]any
	if err := json.Unmarshal(data, &rawConfig); err != nil {
		result.Errors = append(result.Errors, ValidationError{
			Message: fmt.Sprintf("invalid JSON: %v", err),
		})
		return result, nil
	}

	checkBashStyleSyntax(rawConfig, "", result)

	version, ok := rawConfig["version"].(string)
	if !ok {
		result.Errors = append(result.Errors, ValidationError{
			Path:    "version",
			Message: fmt.Sprintf("version field is required. Hint: Add \"version\": %q", ConfigVersion),
		})
	} else if !strings.HasPrefix(version, ConfigVersion) {
		result.Errors = append(result.Errors, ValidationError{
			Path:    "version",
			Message: fmt.Sprintf("unsupported version '%s' - use '%s'", version, ConfigVersion),
		})
	}

	validateServerStructure(rawConfig, result)
	validateProvidersStructure(rawConfig, result)
	validateStorageStructure(rawConfig, result)
	validateAdminStructure(rawConfig, result)

	return result, nil
}

func validateServerStructure(rawConfig map[string]any, result *ValidationResult) {
	server, ok := rawConfig["server"].(map[string]any)
	if !ok {
		if _, exists := rawConfig["server"]; exists {
			result.Errors = append(result.Errors, ValidationError{
				Path:    "server",
				Message: "server must be an object",
			})
		}
		return
	}

	if key, ok := server["sessionSigningKey"]; ok {
		if err := validateEnvVarReference(key, "sessionSigningKey", "server.sessionSigningKey"); err != nil {
			result.Errors = append(result.Errors, *err)
		}
	} else {
		result.Warnings = append(result.Warnings, ValidationError{
			Path:    "server.sessionSigningKey",
			Message: "no session signing key: exchange responses will not include a session token",
		})
	}

	if ttl, ok := server["sessionTtl"].(string); ok {
		if _, err := time.ParseDuration(ttl); err != nil {
			result.Errors = append(result.Errors, ValidationError{
				Path:    "server.sessionTtl",
				Message: fmt.Sprintf("invalid duration '%s'. Example: \"168h\"", ttl),
			})
		}
	}

	if origins, ok := server["allowedOrigins"]; ok {
		if _, isArray := origins.([]any); !isArray {
			result.Errors = append(result.Errors, ValidationError{
				Path:    "server.allowedOrigins",
				Message: "allowedOrigins must be an array of origins",
			})
		}
	}

	if rl, ok := server["rateLimit"].(map[string]any); ok {
		if rps, ok := rl["requestsPerSecond"].(float64); !ok || rps <= 0 {
			result.Errors = append(result.Errors, ValidationError{
				Path:    "server.rateLimit.requestsPerSecond",
				Message: "requestsPerSecond must be a positive number",
			})
		}
		if burst, ok := rl["burst"].(float64); !ok || burst < 1 {
			result.Errors = append(result.Errors, ValidationError{
				Path:    "server.rateLimit.burst",
				Message: "burst must be at least 1",
			})
		}
	}
}

func validateProvidersStructure(rawConfig map[string]any, result *ValidationResult) {
	providers, ok := rawConfig["providers"].(map[string]any)
	if !ok {
		result.Warnings = append(result.Warnings, ValidationError{
			Path:    "providers",
			Message: "no login providers configured: every login method is disabled",
		})
		return
	}

	for name, p := range providers {
		path := "providers." + name
		switch ProviderType(name) {
		case ProviderKakao, ProviderNaver, ProviderGoogle:
		default:
			result.Errors = append(result.Errors, ValidationError{
				Path:    path,
				Message: fmt.Sprintf("unknown provider '%s' - must be one of kakao, naver, google", name),
			})
			continue
		}

		provider, ok := p.(map[string]any)
		if !ok {
			result.Errors = append(result.Errors, ValidationError{
				Path:    path,
				Message: "provider config must be an object",
			})
			continue
		}

		if _, ok := provider["clientId"]; !ok {
			result.Warnings = append(result.Warnings, ValidationError{
				Path:    path + ".clientId",
				Message: fmt.Sprintf("clientId missing: %s login will be disabled", name),
			})
		}

		secret, hasSecret := provider["clientSecret"]
		if hasSecret {
			if err := validateEnvVarReference(secret, "clientSecret", path+".clientSecret"); err != nil {
				result.Errors = append(result.Errors, *err)
			}
		} else if ProviderType(name) != ProviderKakao {
			result.Warnings = append(result.Warnings, ValidationError{
				Path:    path + ".clientSecret",
				Message: fmt.Sprintf("clientSecret missing: %s login will be disabled", name),
			})
		}
	}
}

func validateStorageStructure(rawConfig map[string]any, result *ValidationResult) {
	storage, ok := rawConfig["storage"].(map[string]any)
	if !ok {
		return
	}
	kind, _ := storage["kind"].(string)
	switch StorageKind(kind) {
	case "", StorageMemory:
	case StorageFirestore:
		if _, ok := storage["gcpProject"]; !ok {
			result.Errors = append(result.Errors, ValidationError{
				Path:    "storage.gcpProject",
				Message: "gcpProject is required when using firestore storage",
			})
		}
	default:
		result.Errors = append(result.Errors, ValidationError{
			Path:    "storage.kind",
			Message: fmt.Sprintf("invalid storage kind '%s' - must be 'memory' or 'firestore'", kind),
		})
	}
}

func validateAdminStructure(rawConfig map[string]any, result *ValidationResult) {
	admin, ok := rawConfig["admin"].(map[string]any)
	if !ok {
		return
	}
	enabled, _ := admin["enabled"].(bool)
	emails, _ := admin["adminEmails"].([]any)
	if enabled && len(emails) == 0 {
		result.Warnings = append(result.Warnings, ValidationError{
			Path:    "admin.adminEmails",
			Message: "admin is enabled but adminEmails is empty: nobody can decide verification requests",
		})
	}
}

// validateEnvVarReference validates that a field uses proper env var reference format
func validateEnvVarReference(value any, fieldName, path string) *ValidationError {
	switch v := value.(type) {
	case string:
		if matches := bashStyleRegex.FindStringSubmatch(v); len(matches) > 1 {
			return &ValidationError{
				Path:    path,
				Message: fmt.Sprintf("found bash-style syntax '%s' - use {\"$env\": \"%s\"} instead", v, matches[1]),
			}
		}
		return &ValidationError{
			Path:    path,
			Message: fmt.Sprintf("%s must use environment variable reference {\"$env\": \"YOUR_ENV_VAR\"} instead of plain text. Hint: This prevents secrets from being stored in config files", fieldName),
		}
	case map[string]any:
		if _, hasEnv := v["$env"]; !hasEnv {
			return &ValidationError{
				Path:    path,
				Message: fmt.Sprintf("%s must use {\"$env\": \"YOUR_ENV_VAR\"} format", fieldName),
			}
		}
		return nil
	default:
		return &ValidationError{
			Path:    path,
			Message: fmt.Sprintf("%s must be an environment variable reference {\"$env\": \"YOUR_ENV_VAR\"}, not %T", fieldName, value),
		}
	}
}

// checkBashStyleSyntax recursively checks for bash-style env var syntax
func checkBashStyleSyntax(value any, path string, result *ValidationResult) {
	switch v := value.(type) {
	case string:
		for _, match := range bashStyleRegex.FindAllString(v, -1) {
			varName := strings.Trim(match, "${}")
			result.Warnings = append(result.Warnings, ValidationError{
				Path:    path,
				Message: fmt.Sprintf("found bash-style syntax '%s' - use {\"$env\": \"%s\"} instead", match, varName),
			})
		}
	case map[string]any:
		if _, hasEnv := v["$env"]; hasEnv {
			return
		}
		for key, val := range v {
			newPath := key
			if path != "" {
				newPath = path + "." + key
			}
			checkBashStyleSyntax(val, newPath, result)
		}
	case []any:
		for i, item := range v {
			checkBashStyleSyntax(item, fmt.Sprintf("%s[%d]", path, i), result)
		}
	}
}
