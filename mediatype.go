//
// Copyright (C) 2023 Dmitry Kolesnikov
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/fogfish/mediatype
//

package mediatype

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Media type is a named image processing pipeline: an ordered chain of effects
// applied to the source image (e.g. hero type crops and resizes the image,
// srcset helper declares the responsive breakpoints of the type).
type Type struct {
	Name        string
	Description string
	Effects     []Effect
}

// Types is part of config DSL
func Types(seq ...Type) []Type { return seq }

// SystemPrefix of media types owned by the host
const SystemPrefix = "rex_media_"

// IsSystem checks if type is owned by the host
func (t Type) IsSystem() bool { return strings.HasPrefix(t.Name, SystemPrefix) }

// Srcset configuration declared by the first srcset helper of the chain
func (t Type) Srcset() Srcset {
	for _, e := range t.Effects {
		if e.Effect == EffectSrcset {
			return ParseSrcset(e.Params.String("srcset", ""))
		}
	}
	return Srcset{}
}

// Effect is a single processing step of media type
type Effect struct {
	Effect string
	Params Params
}

// Equal compares effects by name and parameters
func (e Effect) Equal(x Effect) bool {
	if e.Effect != x.Effect || len(e.Params) != len(x.Params) {
		return false
	}

	for k, v := range e.Params {
		w, has := x.Params[k]
		if !has || fmt.Sprint(v) != fmt.Sprint(w) {
			return false
		}
	}

	return true
}

// Params of the effect, keyed by the short parameter name (e.g. width)
type Params map[string]any

// Int value of parameter, numbers are accepted as JSON numbers or strings
func (p Params) Int(key string, def int) int {
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n)
		}
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return def
}

// Float value of parameter
func (p Params) Float(key string, def float64) float64 {
	switch v := p[key].(type) {
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case float64:
		return v
	case json.Number:
		if n, err := v.Float64(); err == nil {
			return n
		}
	case string:
		if n, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return n
		}
	}
	return def
}

// String value of parameter
func (p Params) String(key string, def string) string {
	switch v := p[key].(type) {
	case nil:
		return def
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// Bool value of parameter
func (p Params) Bool(key string, def bool) bool {
	switch v := p[key].(type) {
	case bool:
		return v
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off", "":
			return false
		}
	case float64:
		return v != 0
	case int:
		return v != 0
	}
	return def
}

//
// Config DSL
//

// `Define` declares a media type
func Define(name string) Type {
	return Type{Name: name, Effects: []Effect{}}
}

// `Describe` attaches human readable description to the type
func (t Type) Describe(text string) Type {
	return Type{Name: t.Name, Description: text, Effects: t.Effects}
}

// `Apply` defines the chain of effects executed for media file.
func (t Type) Apply(seq ...Effect) Type {
	return Type{Name: t.Name, Description: t.Description, Effects: seq}
}

// Use any effect by name
func Use(effect string, params Params) Effect {
	if params == nil {
		params = Params{}
	}
	return Effect{Effect: effect, Params: params}
}

// Resize to fit into the box
func Resize(w, h int) Effect {
	return Use("resize", Params{"width": w, "height": h, "style": "maximum"})
}

// Crop the box from the center of image
func Crop(w, h int) Effect {
	return Use("crop", Params{"width": w, "height": h, "hpos": "center", "vpos": "middle"})
}

// EffectSrcset is the name of effect that declares srcset breakpoints
const EffectSrcset = "srcset_helper"

// SrcsetOf declares responsive breakpoints of the media type,
// spec is "{Width} {Descriptor}, ..." (e.g. "400 480w, 800 960w")
func SrcsetOf(width int, spec string) Effect {
	return Use(EffectSrcset, Params{"width": width, "srcset": spec})
}

//
// JSON codec, compatible with the host's export format:
//
//	{
//	  "name": "hero",
//	  "description": "",
//	  "effects": {
//	    "1": {"effect": "resize", "params": {"rex_effect_resize": {"rex_effect_resize_width": 400}}}
//	  }
//	}
//

// Namespace of effect parameters in the persisted layout
func Namespace(effect string) string { return "rex_effect_" + effect }

// EncodeParams into namespaced layout
func EncodeParams(effect string, params Params) map[string]map[string]any {
	ns := Namespace(effect)
	seq := make(map[string]any, len(params))
	for k, v := range params {
		seq[ns+"_"+k] = v
	}
	return map[string]map[string]any{ns: seq}
}

// DecodeParams from namespaced layout
func DecodeParams(effect string, layout map[string]map[string]any) Params {
	ns := Namespace(effect)
	params := Params{}
	for k, v := range layout[ns] {
		params[strings.TrimPrefix(k, ns+"_")] = v
	}
	return params
}

type effectJSON struct {
	Effect string                    `json:"effect"`
	Params map[string]map[string]any `json:"params"`
}

type typeJSON struct {
	Name        string                `json:"name"`
	Description string                `json:"description"`
	Effects     map[string]effectJSON `json:"effects"`
}

func (t Type) MarshalJSON() ([]byte, error) {
	effects := make(map[string]effectJSON, len(t.Effects))
	for i, e := range t.Effects {
		effects[strconv.Itoa(i+1)] = effectJSON{
			Effect: e.Effect,
			Params: EncodeParams(e.Effect, e.Params),
		}
	}

	return json.Marshal(typeJSON{
		Name:        t.Name,
		Description: t.Description,
		Effects:     effects,
	})
}

func (t *Type) UnmarshalJSON(b []byte) error {
	var val struct {
		Name        string  `json:"name"`
		Description *string `json:"description"`
		Effects     map[string]struct {
			Effect string          `json:"effect"`
			Params json.RawMessage `json:"params"`
		} `json:"effects"`
	}
	if err := json.Unmarshal(b, &val); err != nil {
		return err
	}

	if val.Name == "" {
		return fmt.Errorf("media type name is not defined")
	}

	type prio struct {
		priority int
		effect   Effect
	}

	seq := make([]prio, 0, len(val.Effects))
	for k, e := range val.Effects {
		p, err := strconv.Atoi(k)
		if err != nil {
			return fmt.Errorf("invalid priority %q of media type %s", k, val.Name)
		}

		params, err := UnmarshalParams(e.Effect, e.Params)
		if err != nil {
			return fmt.Errorf("invalid params of effect %s (%s): %w", e.Effect, val.Name, err)
		}

		seq = append(seq, prio{
			priority: p,
			effect:   Effect{Effect: e.Effect, Params: params},
		})
	}
	sort.Slice(seq, func(i, j int) bool { return seq[i].priority < seq[j].priority })

	t.Name = val.Name
	t.Description = ""
	if val.Description != nil {
		t.Description = *val.Description
	}
	t.Effects = make([]Effect, len(seq))
	for i, x := range seq {
		t.Effects[i] = x.effect
	}

	return nil
}

// UnmarshalParams decodes namespaced params layout of the effect
func UnmarshalParams(effect string, raw []byte) (Params, error) {
	layout, err := decodeLayout(raw)
	if err != nil {
		return nil, err
	}

	return DecodeParams(effect, layout), nil
}

// decodeLayout accepts namespaced params object, empty list and null are
// equivalent to no params.
func decodeLayout(raw json.RawMessage) (map[string]map[string]any, error) {
	layout := map[string]map[string]any{}
	if isEmptyJSON(raw) {
		return layout, nil
	}

	var seq map[string]json.RawMessage
	if err := json.Unmarshal(raw, &seq); err != nil {
		return nil, err
	}

	for ns, val := range seq {
		params := map[string]any{}
		if !isEmptyJSON(val) {
			if err := json.Unmarshal(val, &params); err != nil {
				return nil, err
			}
		}
		layout[ns] = params
	}

	return layout, nil
}

func isEmptyJSON(raw json.RawMessage) bool {
	switch strings.TrimSpace(string(raw)) {
	case "", "null", "[]", "{}":
		return true
	}
	return false
}
