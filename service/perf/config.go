// Copyright (c) 2022-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package perf

import (
	"fmt"

	"github.com/prometheus/common/model"
)

type Config struct {
	// Namespace is prepended to the process metrics (e.g. janus_process_cpu_seconds_total).
	// Service metrics keep their plain names.
	Namespace string `toml:"namespace"`
	// ConstLabels are attached to every exported metric.
	ConstLabels map[string]string `toml:"const_labels"`
}

func (c Config) IsValid() error {
	if c.Namespace != "" && !model.IsValidMetricName(model.LabelValue(c.Namespace)) {
		return fmt.Errorf("invalid Namespace value: %q is not a valid metric name prefix", c.Namespace)
	}

	for name := range c.ConstLabels {
		if !model.LabelName(name).IsValid() {
			return fmt.Errorf("invalid ConstLabels value: %q is not a valid label name", name)
		}
	}

	return nil
}

func (c *Config) SetDefaults() {
	c.Namespace = "janus"
	c.ConstLabels = map[string]string{
		"SVC": "janus",
	}
}
