package mqtt

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/vboginskey/bmv/internal/ut1300"
)

func TestReadingMessage(t *testing.T) {
	r := &ut1300.Reading{
		Device:      "R1300SJ",
		Measurement: "cell_voltages",
		Time:        time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
		Fields: map[string]any{
			"cell1_voltage": 3.333,
			"cell2_voltage": 3.326,
		},
	}

	topic, data, err := readingMessage(r)
	if err != nil {
		t.Fatalf("readingMessage: %v", err)
	}
	if topic != "batteries/R1300SJ/cell_voltages" {
		t.Errorf("topic = %q, want batteries/R1300SJ/cell_voltages", topic)
	}

	var decoded struct {
		Device      string         `json:"device"`
		Measurement string         `json:"measurement"`
		Fields      map[string]any `json:"fields"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if decoded.Device != "R1300SJ" || decoded.Measurement != "cell_voltages" {
		t.Errorf("payload identity = %q/%q", decoded.Device, decoded.Measurement)
	}
	if v := decoded.Fields["cell1_voltage"]; v != 3.333 {
		t.Errorf("cell1_voltage = %v, want 3.333", v)
	}
}
