package messenger

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/companion-backend/internal/platform/logger"
)

const phrasesEnv = "MESSENGER_PHRASES_YAML"

//go:embed phrases.yaml
var phrasesFS embed.FS

var fallbackTeasers = []string{
	"Give me a second...",
}

var fallbackFarewells = []string{
	"I have to go now, talk to you tomorrow!",
}

// Phrases are the canned lines the pipeline uses outside of completions.
type Phrases struct {
	Teasers   []string `yaml:"teasers"`
	Farewells []string `yaml:"farewells"`
}

var (
	phrasesOnce  sync.Once
	phrasesCache *Phrases
	phrasesErr   error
)

// DefaultPhrases returns the phrase pools from MESSENGER_PHRASES_YAML when set,
// the embedded file otherwise, and hardcoded lines if both fail to load.
func DefaultPhrases(log *logger.Logger) *Phrases {
	phrasesOnce.Do(func() {
		phrasesCache, phrasesErr = loadPhrases()
	})
	if phrasesErr != nil {
		if log != nil {
			log.Warn("messenger: phrase file load failed; using fallback", "error", phrasesErr)
		}
		return &Phrases{Teasers: fallbackTeasers, Farewells: fallbackFarewells}
	}
	return phrasesCache
}

func loadPhrases() (*Phrases, error) {
	data, err := readPhrases()
	if err != nil {
		return nil, err
	}
	return parsePhrases(data)
}

func parsePhrases(data []byte) (*Phrases, error) {
	var p Phrases
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse phrases: %w", err)
	}
	p.Teasers = compact(p.Teasers)
	p.Farewells = compact(p.Farewells)
	if len(p.Farewells) == 0 {
		return nil, errors.New("phrases: farewells must not be empty")
	}
	return &p, nil
}

func readPhrases() ([]byte, error) {
	if path := strings.TrimSpace(os.Getenv(phrasesEnv)); path != "" {
		return os.ReadFile(path)
	}
	return phrasesFS.ReadFile("phrases.yaml")
}

func compact(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
