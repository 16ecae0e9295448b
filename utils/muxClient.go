package utils

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"academy/config"

	"github.com/go-resty/resty/v2"
)

// MuxClient talks to the Mux video API. It satisfies the asset provider port
// of the video lifecycle service.
type MuxClient struct {
	client *resty.Client
}

func NewMuxClient() *MuxClient {
	client := resty.New().
		SetBaseURL("https://api.mux.com").
		SetBasicAuth(config.AppConfig.MuxTokenID, config.AppConfig.MuxTokenSecret).
		SetHeader("Content-Type", "application/json").
		SetTimeout(15 * time.Second)
	return &MuxClient{client: client}
}

type muxAsset struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	PlaybackIDs []struct {
		ID string `json:"id"`
	} `json:"playback_ids"`
}

type muxAssetResponse struct {
	Data muxAsset `json:"data"`
}

// CreateAsset ingests the source URL into a new Mux asset with a public
// playback policy. The playback id can be empty while the asset is still
// preparing; the scheduler picks it up later.
func (m *MuxClient) CreateAsset(ctx context.Context, sourceURL string) (string, string, error) {
	resp, err := m.client.R().
		SetContext(ctx).
		SetBody(map[string]interface{}{
			"input":           sourceURL,
			"playback_policy": []string{"public"},
		}).
		Post("/video/v1/assets")
	if err != nil {
		return "", "", &ProviderError{Provider: "mux", Op: "create asset", Retryable: true, Err: err}
	}
	if resp.IsError() {
		return "", "", muxError("create asset", resp)
	}

	var assetResp muxAssetResponse
	if err := json.Unmarshal(resp.Body(), &assetResp); err != nil {
		return "", "", &ProviderError{Provider: "mux", Op: "create asset", StatusCode: resp.StatusCode(), Err: err}
	}

	playbackID := ""
	if len(assetResp.Data.PlaybackIDs) > 0 {
		playbackID = assetResp.Data.PlaybackIDs[0].ID
	}
	return assetResp.Data.ID, playbackID, nil
}

// GetAsset fetches the current status and playback id of an asset.
func (m *MuxClient) GetAsset(ctx context.Context, assetID string) (string, string, error) {
	resp, err := m.client.R().
		SetContext(ctx).
		Get(fmt.Sprintf("/video/v1/assets/%s", assetID))
	if err != nil {
		return "", "", &ProviderError{Provider: "mux", Op: "get asset", Retryable: true, Err: err}
	}
	if resp.IsError() {
		return "", "", muxError("get asset", resp)
	}

	var assetResp muxAssetResponse
	if err := json.Unmarshal(resp.Body(), &assetResp); err != nil {
		return "", "", &ProviderError{Provider: "mux", Op: "get asset", StatusCode: resp.StatusCode(), Err: err}
	}

	playbackID := ""
	if len(assetResp.Data.PlaybackIDs) > 0 {
		playbackID = assetResp.Data.PlaybackIDs[0].ID
	}
	return assetResp.Data.Status, playbackID, nil
}

// DeleteAsset removes the asset from Mux. A 404 counts as success: the asset
// is already gone and the local reference can be dropped.
func (m *MuxClient) DeleteAsset(ctx context.Context, assetID string) error {
	resp, err := m.client.R().
		SetContext(ctx).
		Delete(fmt.Sprintf("/video/v1/assets/%s", assetID))
	if err != nil {
		return &ProviderError{Provider: "mux", Op: "delete asset", Retryable: true, Err: err}
	}
	if resp.IsError() && resp.StatusCode() != 404 {
		return muxError("delete asset", resp)
	}
	return nil
}

func muxError(op string, resp *resty.Response) error {
	return &ProviderError{
		Provider:   "mux",
		Op:         op,
		StatusCode: resp.StatusCode(),
		Retryable:  resp.StatusCode() >= 500,
		Err:        fmt.Errorf("API error: %s", resp.String()),
	}
}
