package service

import (
	"context"
	"encoding/json"

	"github.com/mitchellh/mapstructure"
	"github.com/rs/zerolog/log"

	"pdfhistory/internal/repository"
)

// DefaultParamsNamespace ключ, под которым лежат параметры всех инструментов
const DefaultParamsNamespace = "pdf-tool-parameters"

// ParamStore сохраняет параметры инструментов в хранилище ключ/значение.
// Один ключ пространства имен хранит JSON-объект toolKey -> параметры.
// Ошибки хранилища логируются и не возвращаются вызывающему.
type ParamStore struct {
	store repository.KeyValueStore
}

func NewParamStore(store repository.KeyValueStore) *ParamStore {
	return &ParamStore{store: store}
}

// Save сохраняет очищенное значение. Если значение непредставимо целиком,
// прежнее значение остается нетронутым.
func (p *ParamStore) Save(ctx context.Context, namespace, toolKey string, value any) {
	sanitized, ok := Sanitize(value)
	if !ok {
		log.Debug().
			Str("component", "param_store").
			Str("tool", toolKey).
			Msg("parameters are not serializable, skipping save")
		return
	}

	params, ok := p.readNamespace(ctx, namespace)
	if !ok {
		return
	}
	params[toolKey] = sanitized
	p.writeNamespace(ctx, namespace, params)
}

// Load возвращает сохраненные параметры инструмента или nil
func (p *ParamStore) Load(ctx context.Context, namespace, toolKey string) map[string]any {
	params, _ := p.readNamespace(ctx, namespace)
	value, _ := params[toolKey].(map[string]any)
	return value
}

// LoadInto декодирует сохраненные параметры в dst по json-тегам
func (p *ParamStore) LoadInto(ctx context.Context, namespace, toolKey string, dst any) bool {
	value := p.Load(ctx, namespace, toolKey)
	if value == nil {
		return false
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           dst,
	})
	if err != nil {
		log.Warn().Err(err).Str("component", "param_store").Msg("failed to create decoder")
		return false
	}
	if err := decoder.Decode(value); err != nil {
		log.Warn().Err(err).
			Str("component", "param_store").
			Str("tool", toolKey).
			Msg("failed to decode stored parameters")
		return false
	}
	return true
}

// Tools возвращает все сохраненные параметры пространства имен
func (p *ParamStore) Tools(ctx context.Context, namespace string) map[string]any {
	params, _ := p.readNamespace(ctx, namespace)
	return params
}

func (p *ParamStore) Clear(ctx context.Context, namespace, toolKey string) {
	params, ok := p.readNamespace(ctx, namespace)
	if !ok {
		return
	}
	if _, exists := params[toolKey]; !exists {
		return
	}
	delete(params, toolKey)
	p.writeNamespace(ctx, namespace, params)
}

func (p *ParamStore) ClearAll(ctx context.Context, namespace string) {
	if err := p.store.RemoveItem(ctx, namespace); err != nil {
		log.Warn().Err(err).
			Str("component", "param_store").
			Str("namespace", namespace).
			Msg("failed to clear parameters")
	}
}

// readNamespace возвращает false только при ошибке чтения хранилища.
// Испорченный JSON считается пустым объектом.
func (p *ParamStore) readNamespace(ctx context.Context, namespace string) (map[string]any, bool) {
	raw, found, err := p.store.GetItem(ctx, namespace)
	if err != nil {
		log.Warn().Err(err).
			Str("component", "param_store").
			Str("namespace", namespace).
			Msg("failed to read parameters")
		return map[string]any{}, false
	}
	if !found {
		return map[string]any{}, true
	}

	params := map[string]any{}
	if err := json.Unmarshal([]byte(raw), &params); err != nil || params == nil {
		log.Warn().Err(err).
			Str("component", "param_store").
			Str("namespace", namespace).
			Msg("stored parameters are corrupted, starting from scratch")
		return map[string]any{}, true
	}
	return params, true
}

func (p *ParamStore) writeNamespace(ctx context.Context, namespace string, params map[string]any) {
	raw, err := json.Marshal(params)
	if err != nil {
		log.Warn().Err(err).Str("component", "param_store").Msg("failed to marshal parameters")
		return
	}
	if err := p.store.SetItem(ctx, namespace, string(raw)); err != nil {
		log.Warn().Err(err).
			Str("component", "param_store").
			Str("namespace", namespace).
			Msg("failed to write parameters")
	}
}
