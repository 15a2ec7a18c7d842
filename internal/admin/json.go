package admin

import "encoding/json"

// RemoveNullQoSValues re-marshals value and strips any null-valued field
// inside a top-level "qos" object, matching the original plugin's admin
// JSON rendering (null QoS fields are "unset", not "set to null").
func RemoveNullQoSValues(value any) (json.RawMessage, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		// Not a JSON object (e.g. a scalar or array) — nothing to elide.
		return raw, nil
	}

	qosRaw, hasQos := obj["qos"]
	if !hasQos {
		return raw, nil
	}

	var qos map[string]json.RawMessage
	if err := json.Unmarshal(qosRaw, &qos); err != nil {
		// qos is not an object (e.g. already null) — leave as-is.
		return raw, nil
	}

	for k, v := range qos {
		if string(v) == "null" {
			delete(qos, k)
		}
	}

	cleaned, err := json.Marshal(qos)
	if err != nil {
		return nil, err
	}
	obj["qos"] = cleaned

	return json.Marshal(obj)
}
