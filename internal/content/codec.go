package content

import (
	"bytes"
	"encoding/json"
	"fmt"
)

func (h Hero) MarshalJSON() ([]byte, error) {
	type alias Hero
	return json.Marshal(struct {
		Type Kind `json:"type"`
		alias
	}{KindHero, alias(h)})
}

func (t Text) MarshalJSON() ([]byte, error) {
	type alias Text
	return json.Marshal(struct {
		Type Kind `json:"type"`
		alias
	}{KindContent, alias(t)})
}

func (c Cards) MarshalJSON() ([]byte, error) {
	type alias Cards
	return json.Marshal(struct {
		Type Kind `json:"type"`
		alias
	}{KindCards, alias(c)})
}

func (c CallToAction) MarshalJSON() ([]byte, error) {
	type alias CallToAction
	return json.Marshal(struct {
		Type Kind `json:"type"`
		alias
	}{KindCTA, alias(c)})
}

func (s ImageText) MarshalJSON() ([]byte, error) {
	type alias ImageText
	return json.Marshal(struct {
		Type Kind `json:"type"`
		alias
	}{KindImageText, alias(s)})
}

// MarshalJSON writes the original payload back so unknown sections survive a save cycle.
func (u Unknown) MarshalJSON() ([]byte, error) {
	if len(u.Raw) == 0 {
		return json.Marshal(map[string]string{"type": u.Type})
	}
	return u.Raw, nil
}

// DecodeSection 按 type 字段解析单个区块；已知类型拒绝未声明的字段。
func DecodeSection(raw []byte) (Section, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("decode section: %w", err)
	}

	typeRaw, ok := fields["type"]
	if !ok {
		return nil, ErrSectionTypeMissing
	}
	var kind Kind
	if err := json.Unmarshal(typeRaw, &kind); err != nil || kind == "" {
		return nil, ErrSectionTypeMissing
	}
	delete(fields, "type")

	switch kind {
	case KindHero:
		return decodeStrict[Hero](kind, fields)
	case KindContent:
		return decodeStrict[Text](kind, fields)
	case KindCards:
		return decodeStrict[Cards](kind, fields)
	case KindCTA:
		return decodeStrict[CallToAction](kind, fields)
	case KindImageText:
		return decodeStrict[ImageText](kind, fields)
	default:
		return Unknown{Type: string(kind), Raw: bytes.Clone(raw)}, nil
	}
}

func decodeStrict[T Section](kind Kind, fields map[string]json.RawMessage) (Section, error) {
	body, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()

	var section T
	if err := dec.Decode(&section); err != nil {
		return nil, fmt.Errorf("decode %s section: %w", kind, err)
	}
	return section, nil
}
