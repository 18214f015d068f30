package openai

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

// PromptConfig holds the chat prompts and model parameters read from
// configs/prompts.yaml
type PromptConfig struct {
	PermitChat ChatPrompt `yaml:"permit_chat"`
}

// ChatPrompt is one system prompt plus the template for the user turn
type ChatPrompt struct {
	Temperature  float32 `yaml:"temperature"`
	MaxTokens    int     `yaml:"max_tokens"`
	System       string  `yaml:"system"`
	UserTemplate string  `yaml:"user_template"`

	user *template.Template
}

// LoadPrompts loads prompt configuration from a YAML file
func LoadPrompts(promptsPath string) (*PromptConfig, error) {
	data, err := os.ReadFile(promptsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompts file: %w", err)
	}
	return ParsePrompts(data)
}

// ParsePrompts decodes prompt configuration and compiles the user template
func ParsePrompts(data []byte) (*PromptConfig, error) {
	var prompts PromptConfig
	if err := yaml.Unmarshal(data, &prompts); err != nil {
		return nil, fmt.Errorf("failed to unmarshal prompts: %w", err)
	}
	if err := prompts.PermitChat.compile("permit_chat"); err != nil {
		return nil, err
	}
	return &prompts, nil
}

func (p *ChatPrompt) compile(name string) error {
	if strings.TrimSpace(p.System) == "" || strings.TrimSpace(p.UserTemplate) == "" {
		return fmt.Errorf("%s prompt requires system and user_template", name)
	}
	if p.Temperature < 0 || p.Temperature > 2 {
		return fmt.Errorf("%s temperature must be between 0 and 2", name)
	}

	tmpl, err := template.New(name).Option("missingkey=error").Parse(p.UserTemplate)
	if err != nil {
		return fmt.Errorf("invalid %s user_template: %w", name, err)
	}
	p.user = tmpl
	return nil
}

// RenderUser fills the user template
func (p *ChatPrompt) RenderUser(data interface{}) (string, error) {
	if p.user == nil {
		return "", fmt.Errorf("prompt template not loaded")
	}

	var buf bytes.Buffer
	if err := p.user.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render prompt: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}
