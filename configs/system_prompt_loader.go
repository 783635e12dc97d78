package config

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed system_prompt.yaml
var defaultSystemPrompt []byte

// SystemPromptConfig はsystem_prompt.yamlの構造を定義
type SystemPromptConfig struct {
	System struct {
		Role       string `yaml:"role"`
		Region     string `yaml:"region"`
		Background string `yaml:"background"`
		Approach   string `yaml:"approach"`
		Language   string `yaml:"language"`
		Version    string `yaml:"version"`
	} `yaml:"system"`

	Objectives []struct {
		Title   string   `yaml:"title"`
		Details []string `yaml:"details"`
	} `yaml:"objectives"`

	MaxFollowUpQuestions int `yaml:"max_follow_up_questions"`
	OrderBoundPct        int `yaml:"order_bound_pct"`

	Tone struct {
		Style       string `yaml:"style"`
		Personality string `yaml:"personality"`
		Focus       string `yaml:"focus"`
	} `yaml:"tone"`
}

// LoadSystemPrompt reads the persona definition from path, or the embedded
// default when path is empty.
func LoadSystemPrompt(path string) (*SystemPromptConfig, error) {
	data := defaultSystemPrompt
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read system prompt file: %w", err)
		}
		data = b
	}

	var cfg SystemPromptConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse system prompt YAML: %w", err)
	}
	if cfg.System.Role == "" {
		return nil, fmt.Errorf("system prompt YAML: system.role is required")
	}
	if cfg.MaxFollowUpQuestions <= 0 {
		cfg.MaxFollowUpQuestions = 3
	}
	if cfg.OrderBoundPct <= 0 {
		cfg.OrderBoundPct = 10
	}
	return &cfg, nil
}

// BuildSystemPrompt renders the persona and objectives section of the role
// instruction. The response format block is appended by the prompt builder.
func (c *SystemPromptConfig) BuildSystemPrompt() string {
	var sb strings.Builder

	// 役割の定義
	sb.WriteString(fmt.Sprintf("Eres un **%s en %s**. ", c.System.Role, c.System.Region))
	if c.System.Background != "" {
		sb.WriteString(fmt.Sprintf("Tienes formación en %s, ", c.System.Background))
	}
	sb.WriteString(fmt.Sprintf("y tu enfoque es **%s**.\n", c.System.Approach))

	sb.WriteString("Tus objetivos son:\n")
	replacer := strings.NewReplacer(
		"{max_questions}", strconv.Itoa(c.MaxFollowUpQuestions),
		"{bound_pct}", strconv.Itoa(c.OrderBoundPct),
	)
	for i, obj := range c.Objectives {
		sb.WriteString(fmt.Sprintf("%d. **%s**\n", i+1, obj.Title))
		for _, d := range obj.Details {
			sb.WriteString(fmt.Sprintf("   - %s\n", replacer.Replace(d)))
		}
	}
	sb.WriteString("\n")

	// トーン
	sb.WriteString(fmt.Sprintf("**Tono:** %s, %s y %s.\n", c.Tone.Style, c.Tone.Personality, c.Tone.Focus))

	return sb.String()
}
