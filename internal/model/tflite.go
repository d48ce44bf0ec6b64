package model

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/tphakala/go-tflite"
	"gonum.org/v1/gonum/mat"
)

// TFLiteClassifier runs a TensorFlow Lite model with a [1 x T x F] float32
// input and a [1 x C] output. The interpreter is not reentrant, so Predict
// calls are serialized.
type TFLiteClassifier struct {
	mu          sync.Mutex
	model       *tflite.Model
	options     *tflite.InterpreterOptions
	interpreter *tflite.Interpreter
	inputSize   int
	logger      *slog.Logger
}

// NewTFLiteClassifier loads the model at path and allocates its tensors.
// threads <= 0 uses a single thread.
func NewTFLiteClassifier(path string, threads int, logger *slog.Logger) (*TFLiteClassifier, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("module", "tflite")

	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("model file: %w", err)
	}

	model := tflite.NewModelFromFile(path)
	if model == nil {
		return nil, fmt.Errorf("cannot load model from %s", path)
	}

	options := tflite.NewInterpreterOptions()
	options.SetNumThread(max(threads, 1))
	options.SetErrorReporter(func(msg string, _ any) {
		logger.Error("tflite", "message", msg)
	}, nil)

	interpreter := tflite.NewInterpreter(model, options)
	if interpreter == nil {
		options.Delete()
		model.Delete()
		return nil, errors.New("cannot create interpreter")
	}
	if status := interpreter.AllocateTensors(); status != tflite.OK {
		interpreter.Delete()
		options.Delete()
		model.Delete()
		return nil, fmt.Errorf("tensor allocation failed: %v", status)
	}

	input := interpreter.GetInputTensor(0)
	if input == nil {
		interpreter.Delete()
		options.Delete()
		model.Delete()
		return nil, errors.New("cannot get input tensor")
	}

	c := &TFLiteClassifier{
		model:       model,
		options:     options,
		interpreter: interpreter,
		inputSize:   len(input.Float32s()),
		logger:      logger,
	}
	logger.Info("model loaded", "path", path, "input_size", c.inputSize, "threads", max(threads, 1))
	return c, nil
}

// Predict implements Classifier.
func (c *TFLiteClassifier) Predict(ctx context.Context, batch []*mat.Dense) ([][]float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.interpreter == nil {
		return nil, errors.New("classifier is closed")
	}

	out := make([][]float64, len(batch))
	for i, seq := range batch {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		probs, err := c.invoke(seq)
		if err != nil {
			return nil, fmt.Errorf("sequence %d: %w", i, err)
		}
		out[i] = probs
	}
	return out, nil
}

// invoke runs one sequence through the interpreter. The caller holds mu.
func (c *TFLiteClassifier) invoke(seq *mat.Dense) ([]float64, error) {
	r, f := seq.Dims()
	if r*f != c.inputSize {
		return nil, fmt.Errorf("input has %d values, model expects %d", r*f, c.inputSize)
	}

	input := c.interpreter.GetInputTensor(0)
	if input == nil {
		return nil, errors.New("cannot get input tensor")
	}
	data := input.Float32s()
	for t := 0; t < r; t++ {
		for j := 0; j < f; j++ {
			data[t*f+j] = float32(seq.At(t, j))
		}
	}

	if status := c.interpreter.Invoke(); status != tflite.OK {
		return nil, fmt.Errorf("tensor invoke failed: %v", status)
	}

	output := c.interpreter.GetOutputTensor(0)
	if output == nil {
		return nil, errors.New("cannot get output tensor")
	}
	size := output.Dim(output.NumDims() - 1)
	raw := output.Float32s()
	if len(raw) < size {
		return nil, fmt.Errorf("output tensor has %d values, expected %d", len(raw), size)
	}

	probs := make([]float64, size)
	for k := range probs {
		probs[k] = float64(raw[k])
	}
	return probs, nil
}

// Close releases the interpreter and model.
func (c *TFLiteClassifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.interpreter != nil {
		c.interpreter.Delete()
		c.interpreter = nil
	}
	if c.options != nil {
		c.options.Delete()
		c.options = nil
	}
	if c.model != nil {
		c.model.Delete()
		c.model = nil
	}
	return nil
}
