// Package jsonfeed is a generic Adapter for polling a JSON API that
// returns an array of records, using the shared ResourcePool for HTTP
// and rate limiting.
package jsonfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/feedspine/feedspine/internal/apperrors"
	"github.com/feedspine/feedspine/internal/model"
	"github.com/feedspine/feedspine/internal/resourcepool"
)

// KeyFunc extracts the natural key from a decoded JSON item.
type KeyFunc func(item map[string]any) (string, bool)

// Config configures a jsonfeed Adapter.
type Config struct {
	Name    string
	URL     string
	Headers map[string]string

	// KeyFn extracts the natural key from each decoded item. Required.
	KeyFn KeyFunc

	// ItemsPath is the key under which the response array lives; empty
	// means the response body itself is a JSON array.
	ItemsPath string
}

// Adapter polls Config.URL once per Fetch call, decoding a JSON array
// (optionally nested under ItemsPath) into one candidate per item.
type Adapter struct {
	cfg       Config
	resources *resourcepool.Pool
}

// New creates a jsonfeed adapter. resources supplies the shared HTTP
// client and rate limiter; if nil a default resource pool is used.
func New(cfg Config, resources *resourcepool.Pool) *Adapter {
	if resources == nil {
		resources = resourcepool.New(resourcepool.Config{})
	}
	return &Adapter{cfg: cfg, resources: resources}
}

func (a *Adapter) Name() string { return a.cfg.Name }

func (a *Adapter) Open(ctx context.Context) error { return nil }

func (a *Adapter) Close(ctx context.Context) error { return nil }

func (a *Adapter) Fetch(ctx context.Context, out chan<- model.RecordCandidate) error {
	defer close(out)

	if err := a.resources.RateLimiter().Wait(ctx); err != nil {
		return apperrors.Wrap(err, apperrors.KindAdapterError, "jsonfeed rate limiter wait")
	}

	items, err := a.fetchItems(ctx)
	if err != nil {
		return err
	}

	for _, item := range items {
		key, ok := a.cfg.KeyFn(item)
		if !ok || key == "" {
			continue
		}
		candidate, err := a.toCandidate(key, item)
		if err != nil {
			continue
		}
		select {
		case <-ctx.Done():
			return apperrors.Wrap(ctx.Err(), apperrors.KindCancelled, "jsonfeed fetch cancelled")
		case out <- candidate:
		}
	}
	return nil
}

func (a *Adapter) fetchItems(ctx context.Context) ([]map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.cfg.URL, nil)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.KindAdapterError, "building jsonfeed request")
	}
	for k, v := range a.cfg.Headers {
		req.Header.Set(k, v)
	}

	resp, err := a.resources.HTTPClient().Do(req)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.KindAdapterError, "jsonfeed request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, apperrors.Newf(apperrors.KindAdapterError, "jsonfeed request returned status %d", resp.StatusCode)
	}

	var raw any
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, apperrors.Wrap(err, apperrors.KindAdapterError, "decoding jsonfeed response")
	}

	if a.cfg.ItemsPath != "" {
		obj, ok := raw.(map[string]any)
		if !ok {
			return nil, apperrors.Newf(apperrors.KindAdapterError, "jsonfeed response is not an object, cannot apply ItemsPath %q", a.cfg.ItemsPath)
		}
		raw, ok = obj[a.cfg.ItemsPath]
		if !ok {
			return nil, apperrors.Newf(apperrors.KindAdapterError, "jsonfeed response missing items path %q", a.cfg.ItemsPath)
		}
	}

	arr, ok := raw.([]any)
	if !ok {
		return nil, apperrors.Newf(apperrors.KindAdapterError, "jsonfeed response is not an array")
	}

	items := make([]map[string]any, 0, len(arr))
	for _, v := range arr {
		m, ok := v.(map[string]any)
		if !ok {
			continue
		}
		items = append(items, m)
	}
	return items, nil
}

func (a *Adapter) toCandidate(key string, item map[string]any) (model.RecordCandidate, error) {
	content := make(model.Content, len(item))
	for k, v := range item {
		content[k] = jsonToContentValue(v)
	}
	candidate, err := model.NewRecordCandidate(key, content, model.Metadata{
		Source:     a.cfg.Name,
		RecordType: "json_item",
	})
	if err != nil {
		return model.RecordCandidate{}, err
	}
	return candidate.WithContentHash(""), nil
}

func jsonToContentValue(v any) model.ContentValue {
	data, err := json.Marshal(v)
	if err != nil {
		return model.Null
	}
	var out model.ContentValue
	if err := out.UnmarshalJSON(data); err != nil {
		return model.Null
	}
	return out
}

// FieldKey builds a KeyFunc that reads field as the natural key,
// stringifying non-string values.
func FieldKey(field string) KeyFunc {
	return func(item map[string]any) (string, bool) {
		v, ok := item[field]
		if !ok {
			return "", false
		}
		switch x := v.(type) {
		case string:
			return x, true
		default:
			return fmt.Sprintf("%v", x), true
		}
	}
}
