// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestRegisterInstanceInfo(t *testing.T) {
	registry := prometheus.NewRegistry()

	err := RegisterInstanceInfo(registry, "canopy.example.com", "v1.2.3", "192.0.2.10")
	if err != nil {
		t.Fatalf("RegisterInstanceInfo() error = %v", err)
	}

	metrics, err := registry.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}

	var found bool
	for _, mf := range metrics {
		if mf.GetName() != instanceInfoMetricName {
			continue
		}
		found = true
		if len(mf.GetMetric()) != 1 {
			t.Errorf("expected 1 metric, got %d", len(mf.GetMetric()))
		}
		for _, m := range mf.GetMetric() {
			if m.GetGauge().GetValue() != 1 {
				t.Errorf("expected value 1, got %v", m.GetGauge().GetValue())
			}
			labels := make(map[string]string)
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			if labels["instance_name"] != "canopy.example.com" || labels["version"] != "v1.2.3" ||
				labels["vantage_point"] != "192.0.2.10" {
				t.Errorf("unexpected labels: %v", labels)
			}
		}
	}
	if !found {
		t.Error("canopy_instance_info metric not found in registry")
	}
}

func TestRegisterInstanceInfo_doubleRegistration(t *testing.T) {
	registry := prometheus.NewRegistry()

	if err := RegisterInstanceInfo(registry, "canopy.example.com", "v1.2.3", "192.0.2.10"); err != nil {
		t.Fatalf("first RegisterInstanceInfo() error = %v", err)
	}

	err := RegisterInstanceInfo(registry, "other.example.com", "v1.2.4", "192.0.2.11")
	if err == nil {
		t.Fatal("expected second RegisterInstanceInfo to return an error (duplicate collector)")
	}

	var alreadyErr prometheus.AlreadyRegisteredError
	if !errors.As(err, &alreadyErr) {
		t.Errorf("expected AlreadyRegisteredError, got %T: %v", err, err)
	}
}
