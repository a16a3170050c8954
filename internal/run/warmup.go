package run

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// warmupTimeout bounds the model load; large models can take a while to
// page into VRAM.
const warmupTimeout = 120 * time.Second

// WarmModel sends a one-token generation request so the model is resident
// before the clock starts. Without this, whichever local mode runs first
// pays a multi-second load penalty that skews wall-clock comparisons.
//
// A warm-up failure is reported but never fatal; the run proceeds and pays
// the load cost instead.
func WarmModel(ctx context.Context, endpoint, model string) error {
	payload, err := json.Marshal(map[string]any{
		"model":   model,
		"prompt":  "hi",
		"stream":  false,
		"options": map[string]any{"num_predict": 1},
	})
	if err != nil {
		return fmt.Errorf("building warm-up request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, warmupTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, endpoint+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building warm-up request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("warming model %s: %w", model, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		return fmt.Errorf("reading warm-up response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("warming model %s: server returned %s", model, resp.Status)
	}
	return nil
}
