package intent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yungbote/companion-backend/internal/platform/logger"
)

const (
	GetImage = "get_image"
	Chat     = "chat"
)

// Classifier labels a message, most likely intent first.
type Classifier interface {
	Classify(ctx context.Context, text string) ([]string, error)
}

// Top returns the first label, or "".
func Top(labels []string) string {
	if len(labels) == 0 {
		return ""
	}
	return labels[0]
}

type httpClassifier struct {
	log        *logger.Logger
	url        string
	httpClient *http.Client
}

// NewHTTPClassifier posts {"text": ...} to url and expects {"intents": [...]}.
func NewHTTPClassifier(url string, timeout time.Duration, log *logger.Logger) (Classifier, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, fmt.Errorf("missing INTENT_CLASSIFIER_URL")
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &httpClassifier{
		log:        log.With("service", "IntentClassifier"),
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

type classifyRequest struct {
	Text string `json:"text"`
}

type classifyResponse struct {
	Intents []string `json:"intents"`
}

func (c *httpClassifier) Classify(ctx context.Context, text string) ([]string, error) {
	body, err := json.Marshal(classifyRequest{Text: text})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("intent classifier: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("intent classifier read: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("intent classifier http %d: %s", resp.StatusCode, string(raw))
	}
	var out classifyResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("intent classifier decode: %w", err)
	}
	return out.Intents, nil
}

// KeywordClassifier matches lowercase substrings. It backs the HTTP
// classifier when that one fails and runs alone in local setups.
type KeywordClassifier struct {
	keywords []string
}

var defaultImageKeywords = []string{
	"photo", "picture", "pic", "selfie", "show me", "send me a",
	"фото", "фотк", "селфи", "покажи", "скинь",
}

func NewKeywordClassifier(keywords ...string) *KeywordClassifier {
	if len(keywords) == 0 {
		keywords = defaultImageKeywords
	}
	lower := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			lower = append(lower, k)
		}
	}
	return &KeywordClassifier{keywords: lower}
}

func (k *KeywordClassifier) Classify(_ context.Context, text string) ([]string, error) {
	t := strings.ToLower(text)
	for _, kw := range k.keywords {
		if strings.Contains(t, kw) {
			return []string{GetImage, Chat}, nil
		}
	}
	return []string{Chat}, nil
}

type fallbackClassifier struct {
	log     *logger.Logger
	primary Classifier
	backup  Classifier
}

// WithFallback returns a Classifier that asks backup whenever primary errors.
func WithFallback(primary, backup Classifier, log *logger.Logger) Classifier {
	return &fallbackClassifier{log: log.With("service", "IntentClassifier"), primary: primary, backup: backup}
}

func (f *fallbackClassifier) Classify(ctx context.Context, text string) ([]string, error) {
	labels, err := f.primary.Classify(ctx, text)
	if err == nil {
		return labels, nil
	}
	f.log.Warn("intent classifier failed; using fallback", "error", err)
	return f.backup.Classify(ctx, text)
}
