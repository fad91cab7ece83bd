//go:build !cgo

package embedding

import (
	"context"
	"errors"
)

var errNoONNX = errors.New("onnx: embedder unavailable in builds without cgo")

// ONNXEmbedder is unavailable without cgo; NewONNXEmbedder always fails.
type ONNXEmbedder struct{}

func NewONNXEmbedder(string, int, int) (*ONNXEmbedder, error) { return nil, errNoONNX }

func (*ONNXEmbedder) Embed(context.Context, string) ([]float32, error) { return nil, errNoONNX }

func (*ONNXEmbedder) EmbedBatch(context.Context, []string) ([][]float32, error) {
	return nil, errNoONNX
}

func (*ONNXEmbedder) Dimensions() int { return 0 }
func (*ONNXEmbedder) Model() string   { return "" }
func (*ONNXEmbedder) Close() error    { return nil }
