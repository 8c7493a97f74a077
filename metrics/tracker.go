package metrics

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"lorediff/logger"
)

const metricsURL = "https://api.lorewise.app/v1/track_suggestion_metrics"

const (
	EventShown    = "suggestion_shown"
	EventAccepted = "suggestion_accepted"
	EventRejected = "suggestion_rejected"
)

type MetricsRequest struct {
	EventType          string `json:"event_type"`
	EditKind           string `json:"edit_kind"`
	Additions          int    `json:"additions"`
	Deletions          int    `json:"deletions"`
	SuggestionID       string `json:"suggestion_id"`
	Lifespan           *int64 `json:"lifespan"`
	DebugInfo          string `json:"debug_info"`
	DeviceID           string `json:"device_id"`
	PrivacyModeEnabled bool   `json:"privacy_mode_enabled"`
}

// SuggestionMetrics captures one proposal's footprint for tracking.
type SuggestionMetrics struct {
	ID        string
	Kind      string
	Additions int // replacement length in bytes
	Deletions int // removed range length in bytes
	ShownAt   time.Time
}

// Tracker posts suggestion lifecycle events to the Lorewise backend.
// All sends are fire-and-forget; a tracker with an empty API key drops
// every event, so callers never need to nil-check.
type Tracker struct {
	apiKey      string
	editorInfo  string
	deviceID    string
	privacyMode bool
	httpClient  *http.Client
}

func NewTracker(apiKey, editorInfo, dataDir string, privacyMode bool) *Tracker {
	deviceID := loadOrCreateDeviceID(dataDir)
	return &Tracker{
		apiKey:      apiKey,
		editorInfo:  editorInfo,
		deviceID:    deviceID,
		privacyMode: privacyMode,
		httpClient:  &http.Client{Timeout: 5 * time.Second},
	}
}

func (t *Tracker) TrackShown(m *SuggestionMetrics) {
	if t == nil {
		return
	}
	t.sendRequest(&MetricsRequest{
		EventType:          EventShown,
		EditKind:           m.Kind,
		Additions:          m.Additions,
		Deletions:          m.Deletions,
		SuggestionID:       m.ID,
		Lifespan:           nil,
		DebugInfo:          t.editorInfo,
		DeviceID:           t.deviceID,
		PrivacyModeEnabled: t.privacyMode,
	})
}

func (t *Tracker) TrackAccepted(m *SuggestionMetrics) {
	if t == nil {
		return
	}
	lifespan := time.Since(m.ShownAt).Milliseconds()
	t.sendRequest(&MetricsRequest{
		EventType:          EventAccepted,
		EditKind:           m.Kind,
		Additions:          m.Additions,
		Deletions:          m.Deletions,
		SuggestionID:       m.ID,
		Lifespan:           &lifespan,
		DebugInfo:          t.editorInfo,
		DeviceID:           t.deviceID,
		PrivacyModeEnabled: t.privacyMode,
	})
}

func (t *Tracker) TrackRejected(m *SuggestionMetrics) {
	if t == nil {
		return
	}
	lifespan := time.Since(m.ShownAt).Milliseconds()
	t.sendRequest(&MetricsRequest{
		EventType:          EventRejected,
		EditKind:           m.Kind,
		Additions:          m.Additions,
		Deletions:          m.Deletions,
		SuggestionID:       m.ID,
		Lifespan:           &lifespan,
		DebugInfo:          t.editorInfo,
		DeviceID:           t.deviceID,
		PrivacyModeEnabled: t.privacyMode,
	})
}

func (t *Tracker) sendRequest(req *MetricsRequest) {
	if t == nil || t.apiKey == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()

		body, err := json.Marshal(req)
		if err != nil {
			logger.Debug("metrics: marshal error: %v", err)
			return
		}

		httpReq, err := http.NewRequestWithContext(ctx, "POST", metricsURL, bytes.NewReader(body))
		if err != nil {
			logger.Debug("metrics: create request error: %v", err)
			return
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Authorization", "Bearer "+t.apiKey)

		resp, err := t.httpClient.Do(httpReq)
		if err != nil {
			logger.Debug("metrics: send error: %v", err)
			return
		}
		defer resp.Body.Close()
		io.Copy(io.Discard, resp.Body)

		if resp.StatusCode >= 400 {
			logger.Debug("metrics: server returned %d for %s", resp.StatusCode, req.EventType)
		} else {
			logger.Debug("metrics: sent %s (id=%s)", req.EventType, req.SuggestionID)
		}
	}()
}

func loadOrCreateDeviceID(dataDir string) string {
	if dataDir == "" {
		return GenerateUUID()
	}

	idPath := filepath.Join(dataDir, "device_id")

	data, err := os.ReadFile(idPath)
	if err == nil {
		id := strings.TrimSpace(string(data))
		if id != "" {
			return id
		}
	}

	id := GenerateUUID()
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		logger.Warn("metrics: could not create data dir %s: %v", dataDir, err)
		return id
	}
	if err := os.WriteFile(idPath, []byte(id), 0644); err != nil {
		logger.Warn("metrics: could not write device_id: %v", err)
	}
	return id
}

func GenerateUUID() string {
	var uuid [16]byte
	if _, err := rand.Read(uuid[:]); err != nil {
		return fmt.Sprintf("fallback-%d", time.Now().UnixNano())
	}
	uuid[6] = (uuid[6] & 0x0f) | 0x40 // version 4
	uuid[8] = (uuid[8] & 0x3f) | 0x80 // variant 2
	return fmt.Sprintf("%08x-%04x-%04x-%04x-%012x",
		uuid[0:4], uuid[4:6], uuid[6:8], uuid[8:10], uuid[10:16])
}
