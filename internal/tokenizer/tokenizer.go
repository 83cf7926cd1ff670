// Package tokenizer provides the token counting oracle used to fill in an
// archive's token statistics.
package tokenizer

import (
	"fmt"
	"strings"

	tiktoken "github.com/pkoukk/tiktoken-go"
	hf "github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
	"go.uber.org/zap"
)

// Counter counts tokens in a chunk of text.
type Counter interface {
	CountTokens(text string) int
	Close()
}

// Kinds accepted by New.
const (
	KindTiktoken    = "tiktoken"
	KindHuggingFace = "huggingface"
	KindApprox      = "approx"
)

const (
	defaultTiktokenModel = "gpt-4o"
	defaultHFModel       = "gpt2"
)

// Config selects and configures a counter.
type Config struct {
	Kind  string // tiktoken, huggingface or approx
	Model string // model name; empty picks the kind's default
	File  string // local tokenizer.json for huggingface
}

// --- Tiktoken ---

// Tiktoken counts BPE tokens with tiktoken-go.
type Tiktoken struct {
	ttk *tiktoken.Tiktoken
}

func (w *Tiktoken) CountTokens(text string) int {
	if w.ttk == nil || text == "" {
		return 0
	}
	return len(w.ttk.EncodeOrdinary(text))
}

func (w *Tiktoken) Close() {}

// --- HuggingFace (sugarme) ---

// HuggingFace counts tokens with a tokenizer.json loaded by sugarme/tokenizer.
type HuggingFace struct {
	htk    *hf.Tokenizer
	logger *zap.Logger
}

func (w *HuggingFace) CountTokens(text string) int {
	if w.htk == nil || text == "" {
		return 0
	}
	en, err := w.htk.EncodeSingle(text)
	if err != nil {
		w.logger.Warn("HuggingFace tokenizer failed to encode text", zap.Error(err))
		return 0
	}
	return len(en.Tokens)
}

func (w *HuggingFace) Close() {}

// New returns the counter described by cfg. A tiktoken or huggingface setup
// that cannot be loaded (for instance without network access to fetch the
// vocabulary) falls back to Approx with a warning rather than failing the run.
func New(cfg Config, logger *zap.Logger) Counter {
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		c   Counter
		err error
	)
	switch strings.ToLower(cfg.Kind) {
	case "", KindTiktoken:
		c, err = loadTiktoken(cfg.Model, logger)
	case KindHuggingFace:
		c, err = loadHuggingFace(cfg.Model, cfg.File, logger)
	case KindApprox:
		return Approx{}
	default:
		err = fmt.Errorf("unsupported tokenizer type %q: use tiktoken, huggingface or approx", cfg.Kind)
	}
	if err != nil {
		logger.Warn("Falling back to approximate token counting", zap.Error(err))
		return Approx{}
	}
	return c
}

func loadTiktoken(model string, logger *zap.Logger) (Counter, error) {
	if model == "" {
		model = defaultTiktokenModel
	}
	tke, err := tiktoken.EncodingForModel(model)
	if err != nil {
		logger.Warn("Tiktoken model not found, using default",
			zap.String("model", model),
			zap.String("default", defaultTiktokenModel),
			zap.Error(err))
		tke, err = tiktoken.EncodingForModel(defaultTiktokenModel)
		if err != nil {
			return nil, fmt.Errorf("get tiktoken encoding for %s: %w", defaultTiktokenModel, err)
		}
	}
	return &Tiktoken{ttk: tke}, nil
}

func loadHuggingFace(model, file string, logger *zap.Logger) (Counter, error) {
	if file != "" {
		logger.Debug("Loading HuggingFace tokenizer from file", zap.String("file", file))
		tk, err := pretrained.FromFile(file)
		if err != nil {
			return nil, fmt.Errorf("load tokenizer from file %s: %w", file, err)
		}
		return &HuggingFace{htk: tk, logger: logger}, nil
	}

	if model == "" {
		model = defaultHFModel
	}
	logger.Debug("Loading HuggingFace tokenizer for model", zap.String("model", model))
	configFile, err := hf.CachedPath(model, "tokenizer.json")
	if err != nil {
		return nil, fmt.Errorf("get cache path for model %s: %w", model, err)
	}
	tk, err := pretrained.FromFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("load pretrained tokenizer for model %s (from %s): %w", model, configFile, err)
	}
	return &HuggingFace{htk: tk, logger: logger}, nil
}
