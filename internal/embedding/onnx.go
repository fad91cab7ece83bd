//go:build cgo

package embedding

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/hyperjump/mise/pkg/utils"
)

var (
	onnxInputNames  = []string{"input_ids", "attention_mask", "token_type_ids"}
	onnxOutputNames = []string{"last_hidden_state"}
)

// ONNXEmbedder runs a BERT-style sentence encoder through ONNX Runtime and
// mean-pools its token states into one vector. Calls are serialized because
// the session reuses a single set of tensors.
type ONNXEmbedder struct {
	mu        sync.Mutex
	session   *ort.AdvancedSession
	tokenizer Tokenizer
	model     string
	dims      int
	maxTokens int

	inputs []*ort.Tensor[int64]
	hidden *ort.Tensor[float32]
}

// NewONNXEmbedder loads the model at modelPath. The onnxruntime environment
// is initialized on first use.
func NewONNXEmbedder(modelPath string, dimensions, maxTokens int) (*ONNXEmbedder, error) {
	if modelPath == "" {
		return nil, errors.New("onnx: model path is required")
	}
	if dimensions <= 0 {
		return nil, fmt.Errorf("onnx: invalid dimensions %d", dimensions)
	}
	if maxTokens < 2 {
		maxTokens = DefaultMaxTokens
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("onnx: init runtime: %w", err)
		}
	}

	e := &ONNXEmbedder{
		tokenizer: HashTokenizer{},
		model:     strings.TrimSuffix(filepath.Base(modelPath), filepath.Ext(modelPath)),
		dims:      dimensions,
		maxTokens: maxTokens,
	}

	inputShape := ort.NewShape(1, int64(maxTokens))
	for _, name := range onnxInputNames {
		t, err := ort.NewEmptyTensor[int64](inputShape)
		if err != nil {
			e.Close()
			return nil, fmt.Errorf("onnx: allocate %s: %w", name, err)
		}
		e.inputs = append(e.inputs, t)
	}
	hidden, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(maxTokens), int64(dimensions)))
	if err != nil {
		e.Close()
		return nil, fmt.Errorf("onnx: allocate output: %w", err)
	}
	e.hidden = hidden

	in := make([]ort.ArbitraryTensor, len(e.inputs))
	for i, t := range e.inputs {
		in[i] = t
	}
	session, err := ort.NewAdvancedSession(modelPath, onnxInputNames, onnxOutputNames,
		in, []ort.ArbitraryTensor{e.hidden}, nil)
	if err != nil {
		e.Close()
		return nil, fmt.Errorf("onnx: open %s: %w", modelPath, err)
	}
	e.session = session
	return e, nil
}

// Embed encodes text and returns the mask-weighted mean of the token states, L2-normalized.
func (e *ONNXEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	enc := e.tokenizer.Encode(text, e.maxTokens)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return nil, errors.New("onnx: embedder is closed")
	}
	copy(e.inputs[0].GetData(), enc.InputIDs)
	copy(e.inputs[1].GetData(), enc.AttentionMask)
	copy(e.inputs[2].GetData(), enc.TokenTypeIDs)
	if err := e.session.Run(); err != nil {
		return nil, fmt.Errorf("onnx: run: %w", err)
	}

	vec := meanPool(e.hidden.GetData(), enc.AttentionMask, e.dims)
	utils.NormalizeL2(vec)
	return vec, nil
}

// EmbedBatch embeds texts one by one, stopping when ctx is cancelled.
func (e *ONNXEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		vec, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out = append(out, vec)
	}
	return out, nil
}

func (e *ONNXEmbedder) Dimensions() int { return e.dims }

func (e *ONNXEmbedder) Model() string { return e.model }

// Close releases the session and its tensors. It is safe to call more than once.
func (e *ONNXEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	var err error
	if e.session != nil {
		err = e.session.Destroy()
		e.session = nil
	}
	for _, t := range e.inputs {
		_ = t.Destroy()
	}
	e.inputs = nil
	if e.hidden != nil {
		_ = e.hidden.Destroy()
		e.hidden = nil
	}
	return err
}
