package services

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var defaultPromptsYAML []byte

type PromptTemplate struct {
	System    string `yaml:"system"`
	User      string `yaml:"user"`
	MaxTokens int    `yaml:"max_tokens"`
}

// Prompts holds every text sent to the language and speech models.
type Prompts struct {
	Concepts            PromptTemplate `yaml:"concepts"`
	ImagePrompt         PromptTemplate `yaml:"image_prompt"`
	FallbackImagePrompt string         `yaml:"fallback_image_prompt"`
	Script              PromptTemplate `yaml:"script"`
	BannedWords         []string       `yaml:"banned_words"`
	SpeechInstructions  string         `yaml:"speech_instructions"`

	templates map[string]*template.Template
}

// PromptData is the template context.
type PromptData struct {
	Title       string
	Abstract    string
	Authors     string
	Keywords    string
	Concepts    string
	PaperText   string
	BannedWords []string
}

const (
	promptConcepts = "concepts"
	promptImage    = "image_prompt"
	promptFallback = "fallback_image_prompt"
	promptScript   = "script"
)

// LoadPrompts parses the embedded defaults and, when path is set, overlays the
// file at path on top of them.
func LoadPrompts(path string) (*Prompts, error) {
	p := &Prompts{}
	if err := yaml.Unmarshal(defaultPromptsYAML, p); err != nil {
		return nil, fmt.Errorf("parse default prompts: %w", err)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read prompts file: %w", err)
		}
		if err := yaml.Unmarshal(data, p); err != nil {
			return nil, fmt.Errorf("parse prompts file %s: %w", path, err)
		}
	}
	if err := p.compile(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Prompts) compile() error {
	sources := map[string]string{
		promptConcepts: p.Concepts.User,
		promptImage:    p.ImagePrompt.User,
		promptFallback: p.FallbackImagePrompt,
		promptScript:   p.Script.User,
	}
	p.templates = make(map[string]*template.Template, len(sources))
	for name, src := range sources {
		if strings.TrimSpace(src) == "" {
			return fmt.Errorf("prompt %s is empty", name)
		}
		tmpl, err := template.New(name).Option("missingkey=error").Parse(src)
		if err != nil {
			return fmt.Errorf("parse prompt %s: %w", name, err)
		}
		p.templates[name] = tmpl
	}
	return nil
}

func (p *Prompts) render(name string, data PromptData) (string, error) {
	tmpl, ok := p.templates[name]
	if !ok {
		return "", fmt.Errorf("unknown prompt %s", name)
	}
	if data.BannedWords == nil {
		data.BannedWords = p.BannedWords
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render prompt %s: %w", name, err)
	}
	return b.String(), nil
}

func (p *Prompts) ConceptsRequest(data PromptData) (CompletionRequest, error) {
	user, err := p.render(promptConcepts, data)
	return CompletionRequest{System: p.Concepts.System, Prompt: user, MaxTokens: p.Concepts.MaxTokens}, err
}

func (p *Prompts) ImagePromptRequest(data PromptData) (CompletionRequest, error) {
	user, err := p.render(promptImage, data)
	return CompletionRequest{System: p.ImagePrompt.System, Prompt: user, MaxTokens: p.ImagePrompt.MaxTokens}, err
}

func (p *Prompts) ScriptRequest(data PromptData) (CompletionRequest, error) {
	user, err := p.render(promptScript, data)
	return CompletionRequest{System: p.Script.System, Prompt: user, MaxTokens: p.Script.MaxTokens}, err
}

func (p *Prompts) Fallback(data PromptData) string {
	out, err := p.render(promptFallback, data)
	if err != nil {
		return fmt.Sprintf("Create a professional, abstract cover image for a research paper titled %q.", data.Title)
	}
	return out
}

// BannedWordsIn lists the banned words that occur in text, case-insensitively.
func (p *Prompts) BannedWordsIn(text string) []string {
	lower := strings.ToLower(text)
	var found []string
	for _, w := range p.BannedWords {
		if strings.Contains(lower, strings.ToLower(w)) {
			found = append(found, w)
		}
	}
	return found
}
