package prompt

import (
	"context"
	"embed"
	"fmt"
	"strings"
	"sync"

	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

//go:embed templates/*.txt
var templatesFS embed.FS

type templateSet struct {
	system string
	user   string

	once sync.Once
	tpl  einoprompt.ChatTemplate
}

var defaultTemplates = mustLoadTemplates("templates/camera_path_v1.system.txt", "templates/camera_path_v1.user.txt")

func mustLoadTemplates(systemPath, userPath string) *templateSet {
	system, err := readEmbeddedText(systemPath)
	if err != nil {
		panic(err)
	}
	user, err := readEmbeddedText(userPath)
	if err != nil {
		panic(err)
	}
	return &templateSet{system: system, user: user}
}

func (t *templateSet) chatTemplate() einoprompt.ChatTemplate {
	t.once.Do(func() {
		t.tpl = einoprompt.FromMessages(
			schema.FString,
			schema.SystemMessage(t.system),
			schema.UserMessage(t.user),
		)
	})
	return t.tpl
}

// Messages renders the chat messages for a compiled prompt.
func (c *Compiler) Messages(ctx context.Context, p *CompiledPrompt) ([]*schema.Message, error) {
	if p == nil {
		return nil, fmt.Errorf("nil prompt")
	}
	preferences := "none"
	if !p.Preferences.IsZero() {
		preferences = p.PreferencesJSON
	}
	vars := map[string]any{
		"instruction":     p.Instruction,
		"model_id":        p.ModelID,
		"duration":        formatDuration(p.Duration),
		"scene":           p.SceneJSON,
		"environment":     p.EnvironmentJSON,
		"constraints":     p.ConstraintsJSON,
		"camera":          p.CameraJSON,
		"preferences":     preferences,
		"response_format": ResponseFormat,
	}
	return c.templates.chatTemplate().Format(ctx, vars)
}

func readEmbeddedText(path string) (string, error) {
	b, err := templatesFS.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}
