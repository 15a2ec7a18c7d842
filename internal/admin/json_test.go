package admin

import (
	"encoding/json"
	"testing"
)

func TestRemoveNullQoSValuesElidesNullFields(t *testing.T) {
	type qos struct {
		Reliability *int `json:"reliability"`
		Durability  *int `json:"durability"`
	}
	type view struct {
		Name string `json:"name"`
		Qos  qos    `json:"qos"`
	}
	rel := 1
	v := view{Name: "foo", Qos: qos{Reliability: &rel, Durability: nil}}

	cleaned, err := RemoveNullQoSValues(v)
	if err != nil {
		t.Fatalf("RemoveNullQoSValues: %v", err)
	}

	var decoded map[string]json.RawMessage
	if err := json.Unmarshal(cleaned, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	var qosDecoded map[string]json.RawMessage
	if err := json.Unmarshal(decoded["qos"], &qosDecoded); err != nil {
		t.Fatalf("unmarshal qos: %v", err)
	}
	if _, present := qosDecoded["durability"]; present {
		t.Fatal("null durability field should have been elided")
	}
	if _, present := qosDecoded["reliability"]; !present {
		t.Fatal("non-null reliability field should be kept")
	}
}
