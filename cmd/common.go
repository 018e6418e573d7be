/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"strings"

	"github.com/valpere/mdtran/internal/config"
	"github.com/valpere/mdtran/internal/credentials"
	"github.com/valpere/mdtran/internal/store"
	"github.com/valpere/mdtran/internal/translator"
)

// buildService constructs the configured translation backend. API keys come
// from the environment or the credential file.
func buildService(c *config.Config) (translator.TranslationService, error) {
	apiKey := ""
	if key := config.CredentialKey(c.Service); key != "" {
		var err error
		apiKey, err = credentials.Load(c.EnvFile, key)
		if err != nil {
			return nil, err
		}
	}

	switch c.Service {
	case "dashscope":
		return translator.NewDashScopeService(apiKey, c.BaseURL, c.Model), nil
	case "openrouter":
		return translator.NewOpenRouterService(apiKey, c.BaseURL, splitList(c.Model)), nil
	case "ollama":
		return translator.NewOllamaTranslator(c.BaseURL, c.Model), nil
	case "google":
		return translator.NewGoogleService(c.Credentials), nil
	}
	return nil, fmt.Errorf("%w: unknown service %q", config.ErrInvalid, c.Service)
}

// splitList turns "a, b,c" into [a b c].
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func openStore(c *config.Config) (*store.Store, error) {
	db, err := store.Open(c.DB)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}
